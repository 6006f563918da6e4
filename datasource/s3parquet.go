package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lychee-technology/vizql"
)

// ParquetPathTemplate resolves a cold-tier parquet object path for a
// table, mirroring the teacher's DuckDBRenderHints.S3ParquetPathTemplate
// (internal/federated_interfaces.go): an object-key template inside Bucket
// with a "{table}" placeholder, e.g. "cold/{table}/data.parquet".
type ParquetPathTemplate struct {
	Bucket   string
	Template string
}

// Resolve substitutes table into the template and returns the bucket-less
// key (suffix after "s3://bucket/") plus the full "s3://..." path DuckDB's
// read_parquet expects.
func (t ParquetPathTemplate) Resolve(table string) (key, fullPath string) {
	key = strings.ReplaceAll(t.Template, "{table}", table)
	key = strings.TrimPrefix(key, "/")
	return key, fmt.Sprintf("s3://%s/%s", t.Bucket, key)
}

// S3ParquetResolver checks that a table's cold-tier parquet export exists
// in S3 and, if so, registers it as a DuckDB view so the query splitter's
// ALL/SQL-capable DuckDB data source can read it via read_parquet,
// grounded on internal/cdc/duckdb_exporter.go (the exporter side of this
// same S3 parquet path) and internal/federated_interfaces.go's template
// field.
type S3ParquetResolver struct {
	Client   *s3.Client
	Template ParquetPathTemplate
}

// NewS3ParquetResolver builds an AWS S3 client from the ambient
// credential chain (environment, shared config, IMDS) via
// aws-sdk-go-v2/config, matching the teacher's preference for the
// default credential provider chain over hand-rolled key plumbing.
func NewS3ParquetResolver(ctx context.Context, template ParquetPathTemplate) (*S3ParquetResolver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, vizql.NewDataSourceError("load aws config", err)
	}
	return &S3ParquetResolver{Client: s3.NewFromConfig(cfg), Template: template}, nil
}

// NewS3ParquetResolverWithStaticCredentials builds the resolver with an
// explicit access key/secret/session token instead of the ambient
// credential chain, for the cross-account bucket case where the cold tier
// lives in a different AWS account than the one the host process normally
// authenticates as.
func NewS3ParquetResolverWithStaticCredentials(ctx context.Context, template ParquetPathTemplate, accessKeyID, secretAccessKey, sessionToken string) (*S3ParquetResolver, error) {
	provider := credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken)
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithCredentialsProvider(provider))
	if err != nil {
		return nil, vizql.NewDataSourceError("load aws config", err)
	}
	return &S3ParquetResolver{Client: s3.NewFromConfig(cfg), Template: template}, nil
}

// Exists reports whether table's cold-tier parquet object is present,
// via a HeadObject call.
func (r *S3ParquetResolver) Exists(ctx context.Context, table string) (bool, error) {
	key, _ := r.Template.Resolve(table)
	_, err := r.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.Template.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}

// ColdTierManifest is the small JSON sidecar the exporter writes next to
// each parquet object (mirroring internal/cdc/duckdb_exporter.go's
// manifest-per-partition convention), describing the export without
// requiring a full parquet read.
type ColdTierManifest struct {
	RowCount int64    `json:"rowCount"`
	Columns  []string `json:"columns"`
}

// FetchManifest downloads table's "<key>.manifest.json" sidecar via
// feature/s3/manager's concurrent, range-aware Downloader rather than a
// plain GetObject, since manifests for wide tables can run to several MB of
// column metadata and the teacher's own cold-tier paths favor the managed
// downloader over hand-rolled range requests.
func (r *S3ParquetResolver) FetchManifest(ctx context.Context, table string) (*ColdTierManifest, error) {
	key, _ := r.Template.Resolve(table)
	buf := manager.NewWriteAtBuffer(nil)
	downloader := manager.NewDownloader(r.Client)
	if _, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(r.Template.Bucket),
		Key:    aws.String(key + ".manifest.json"),
	}); err != nil {
		return nil, vizql.NewDataSourceError("download cold-tier manifest", err)
	}
	var m ColdTierManifest
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		return nil, vizql.NewDataSourceError("parse cold-tier manifest", err)
	}
	return &m, nil
}

// RegisterColdTier checks for table's parquet export and, if present,
// registers it as viewName in dst so subsequent pushdown queries can read
// it through DuckDB's read_parquet.
func (r *S3ParquetResolver) RegisterColdTier(ctx context.Context, dst *DuckDBDataSource, table, viewName string) (bool, error) {
	ok, err := r.Exists(ctx, table)
	if err != nil || !ok {
		return false, err
	}
	_, fullPath := r.Template.Resolve(table)
	if err := dst.RegisterParquetView(ctx, viewName, fullPath); err != nil {
		return false, err
	}
	return true, nil
}
