package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/durationpb"
)

// namespaceRegistrar is the subset of client.NamespaceClient EnsureNamespace needs.
type namespaceRegistrar interface {
	Describe(ctx context.Context, namespace string) (*workflowservice.DescribeNamespaceResponse, error)
	Register(ctx context.Context, request *workflowservice.RegisterNamespaceRequest) error
}

// EnsureNamespace registers the namespace with the given history retention if it doesn't exist.
func EnsureNamespace(ctx context.Context, logger *zap.Logger, hostPort, namespace string, retention time.Duration) error {
	nsClient, err := client.NewNamespaceClient(client.Options{
		HostPort: hostPort,
		Logger:   NewZapAdapter(logger),
	})
	if err != nil {
		return fmt.Errorf("failed to create namespace client: %w", err)
	}
	defer nsClient.Close()

	return ensureNamespace(ctx, logger, nsClient, namespace, retention, 2*time.Second)
}

func ensureNamespace(ctx context.Context, logger *zap.Logger, ns namespaceRegistrar, namespace string, retention, settle time.Duration) error {
	_, err := ns.Describe(ctx, namespace)
	if err == nil {
		logger.Debug("Namespace already exists", zap.String("namespace", namespace))
		return nil
	}

	var notFound *serviceerror.NamespaceNotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe namespace: %w", err)
	}

	logger.Info("Creating namespace",
		zap.String("namespace", namespace),
		zap.Duration("retention", retention))

	err = ns.Register(ctx, &workflowservice.RegisterNamespaceRequest{
		Namespace:                        namespace,
		WorkflowExecutionRetentionPeriod: durationpb.New(retention),
	})
	var exists *serviceerror.NamespaceAlreadyExists
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to register namespace: %w", err)
	}

	// Registration propagates asynchronously.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settle):
	}
	return nil
}
