package rpc

// Resource names one list endpoint of the portal API. The name doubles as the JSON key holding the
// page data and as the object-storage folder for raw pages.
type Resource string

const (
	Rounds       Resource = "rounds"
	Pools        Resource = "pools"
	Proposals    Resource = "proposals"
	Milestones   Resource = "milestones"
	Reviews      Resource = "reviews"
	Comments     Resource = "comments"
	CommentVotes Resource = "comment_votes"
	Users        Resource = "users"
)

// PaginatedResources are fetched page by page after rounds, proposals and pools, in this order.
var PaginatedResources = []Resource{Milestones, Reviews, Comments, CommentVotes, Users}

// Path returns the endpoint path, e.g. "/comment_votes".
func (r Resource) Path() string { return "/" + string(r) }

// Key returns the response envelope key that holds the page data.
func (r Resource) Key() string { return string(r) }

func (r Resource) String() string { return string(r) }

// Query parameter names understood by every list endpoint.
const (
	pageParam    = "page"
	limitParam   = "limit"
	RoundIDParam = "round_id"
)
