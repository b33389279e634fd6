// Package testdeps starts the external services (Mongo, Minio) which the
// integration tests need, in containers. Set SKIP_INTEGRATION=1 to skip them.
package testdeps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
)

const (
	accessKey = "minioadmin"
	secretKey = "minioadmin"
	bucket    = "test-bucket"
	region    = "us-east-1"
)

type Env struct {
	t   *testing.T
	cfg *config

	mongoURL string
	S3URI    string
	S3Bucket string
	S3Key    string
	S3Secret string

	minio      *minio.Client
	containers []testcontainers.Container
}

type Option func(*config)

type config struct {
	useMongo bool
	useMinio bool
}

func WithMongo() Option {
	return func(c *config) {
		c.useMongo = true
	}
}

func WithMinio() Option {
	return func(c *config) {
		c.useMinio = true
	}
}

func New(ctx context.Context, t *testing.T, opts ...Option) *Env {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "1" {
		t.Skip("Skipping integration test")
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	env := &Env{
		cfg:      cfg,
		S3Bucket: bucket,
		S3Key:    accessKey,
		S3Secret: secretKey,
		t:        t,
	}

	t.Cleanup(func() {
		for _, c := range env.containers {
			c.Terminate(ctx)
		}
	})

	if cfg.useMongo {
		env.startMongo(ctx)
	}

	if cfg.useMinio {
		env.startMinio(ctx)
	}

	return env
}

// MongoURL returns the URL to the Mongo server, or fails the test if Mongo is
// not enabled. Use WithMongo to enable it.
func (e *Env) MongoURL() string {
	e.t.Helper()

	if !e.cfg.useMongo {
		e.t.Fatalf("mongo is not enabled; use WithMongo to enable it")
	}

	return e.mongoURL
}

// PutObject uploads data to the test bucket under key, so fetchers have
// something to read. Fails the test if Minio is not enabled.
func (e *Env) PutObject(ctx context.Context, key string, data []byte) {
	e.t.Helper()

	if !e.cfg.useMinio {
		e.t.Fatalf("minio is not enabled; use WithMinio to enable it")
	}

	_, err := e.minio.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		e.t.Fatalf("PutObject: %v", err)
	}
}

func (e *Env) startMongo(ctx context.Context) {
	mongoC, err := tcmongo.Run(ctx,
		"mongo:6",
		tcmongo.WithReplicaSet("rs"))
	if err != nil {
		e.t.Fatalf("tcmongo.Run: %v", err)
	}

	e.containers = append(e.containers, mongoC)

	cs, err := mongoC.ConnectionString(ctx)
	if err != nil {
		e.t.Fatalf("ConnectionString: %v", err)
	}

	// single-node replset, so connect directly. ConnectionString doesn't say
	// so even when WithReplicaSet is used.
	e.mongoURL = fmt.Sprintf("%s/?connect=direct", cs)
}

func (e *Env) startMinio(ctx context.Context) {
	minioC, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername(accessKey),
		tcminio.WithPassword(secretKey))
	if err != nil {
		e.t.Fatalf("tcminio.Run: %v", err)
	}
	e.containers = append(e.containers, minioC)

	url, err := minioC.ConnectionString(ctx)
	if err != nil {
		e.t.Fatalf("ConnectionString: %v", err)
	}

	e.minio, err = minio.New(url, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		e.t.Fatalf("minio.New: %v", err)
	}

	err = e.minio.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
	if err != nil {
		e.t.Fatalf("MakeBucket: %v", err)
	}

	e.S3URI = fmt.Sprintf("http://%s", url)

	// the aws sdk picks these up via config.LoadDefaultConfig.
	e.t.Setenv("AWS_ACCESS_KEY_ID", e.S3Key)
	e.t.Setenv("AWS_SECRET_ACCESS_KEY", e.S3Secret)
	e.t.Setenv("AWS_ENDPOINT_URL_S3", e.S3URI)
	e.t.Setenv("AWS_REGION", region)
}
