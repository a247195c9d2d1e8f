package portal

const UsersTableName = "users"

// UserColumns defines the schema for the users table.
var UserColumns = []ColumnDef{
	{Name: "id", Type: "INTEGER"},
	{Name: "collection_id", Type: "TEXT", Index: true},
	{Name: "user_name", Type: "TEXT"},
	{Name: "email", Type: "TEXT"},
	{Name: "total_proposals", Type: "INTEGER"},
	{Name: "raw_json", Type: "TEXT"},
}

var UsersTable = Table{Name: UsersTableName, Columns: UserColumns, Key: []string{"id"}}

// User is a portal account. CollectionID is the external identifier used by vote exports.
type User struct {
	ID             int64  `db:"id" json:"id"`
	CollectionID   string `db:"collection_id" json:"collection_id"`
	UserName       string `db:"user_name" json:"user_name"`
	Email          string `db:"email" json:"email"`
	TotalProposals int64  `db:"total_proposals" json:"total_proposals"`
	RawJSON        string `db:"raw_json" json:"raw_json"`
}

func (u *User) Values() []any {
	return []any{u.ID, u.CollectionID, u.UserName, u.Email, u.TotalProposals, u.RawJSON}
}

func (u *User) Fields() []any {
	return []any{&u.ID, &u.CollectionID, &u.UserName, &u.Email, &u.TotalProposals, &u.RawJSON}
}
