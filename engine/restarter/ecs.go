package restarter

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ecs"
	"github.com/aws/aws-sdk-go/service/ecs/ecsiface"
	"github.com/fdswitch/fdswitch/engine/fslog"
	"github.com/pkg/errors"
)

// ECS restarts an ECS service by forcing a new deployment. The project is the cluster.
type ECS struct {
	Region string

	once   sync.Once
	client ecsiface.ECSAPI
	err    error
}

// NewECS creates an ECS restarter. An empty region uses the sdk default chain.
func NewECS(region string) *ECS {
	return &ECS{Region: region}
}

func newECSWithClient(client ecsiface.ECSAPI) *ECS {
	e := &ECS{client: client}
	e.once.Do(func() {})
	return e
}

// Name returns ecs
func (e *ECS) Name() string {
	return "ecs"
}

func (e *ECS) getClient() (ecsiface.ECSAPI, error) {
	e.once.Do(func() {
		cfg := aws.NewConfig()
		if e.Region != "" {
			cfg = cfg.WithRegion(e.Region)
		}
		sess, err := session.NewSession(cfg)
		if err != nil {
			e.err = errors.Wrap(err, "aws session")
			return
		}
		e.client = ecs.New(sess)
	})
	return e.client, e.err
}

// Restart forces a new deployment of service in cluster project
func (e *ECS) Restart(ctx context.Context, project, service string) error {
	client, err := e.getClient()
	if err != nil {
		return restartError(project, service, err)
	}

	if project == "" || service == "" {
		return restartError(project, service, errors.New("cluster and service must not be empty"))
	}

	input := &ecs.UpdateServiceInput{
		Cluster:            aws.String(project),
		Service:            aws.String(service),
		ForceNewDeployment: aws.Bool(true),
	}
	if err := input.Validate(); err != nil {
		return restartError(project, service, err)
	}

	fslog.Infof("Restarting %s/%s: ecs update-service --force-new-deployment", project, service)
	resp, err := client.UpdateServiceWithContext(ctx, input)
	if err != nil {
		return restartError(project, service, err)
	}
	if resp.Service == nil {
		return restartError(project, service, errors.New("update service: empty response"))
	}
	fslog.Infof("Restarted %s/%s: %d deployment(s), status %s", project, service, len(resp.Service.Deployments), aws.StringValue(resp.Service.Status))
	return nil
}
