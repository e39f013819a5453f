package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/ledgerd/internal/common"
	sc "github.com/dmitrijs2005/ledgerd/internal/server/config"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/records"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// PresignTTL is the lifetime of export download links.
const PresignTTL = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

var errExportsDisabled = common.Validationf("exports are not configured")

// Export describes an uploaded CSV file.
type Export struct {
	Key   string
	URL   string
	Count int
}

// ExportService writes the caller's records to object storage.
type ExportService struct {
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	now         func() time.Time
}

func NewExportService(m repomanager.RepositoryManager, config *sc.Config) *ExportService {
	return &ExportService{repomanager: m, config: config, now: time.Now}
}

func (s *ExportService) storageKey(userID string) string {
	d := s.now().UTC()
	return fmt.Sprintf("exports/%s/%d/%02d/%02d/%v.csv", userID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *ExportService) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region), // обязательный параметр
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"", // токен (не нужен)
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Export uploads the records matching f as CSV and returns a download link
// valid for PresignTTL.
func (s *ExportService) Export(ctx context.Context, p *Principal, f records.Filter) (*Export, error) {
	if s.config.S3Bucket == "" {
		return nil, errExportsDisabled
	}

	rs, err := s.repomanager.Records(p.Conn).List(ctx, p.User.ID, f)
	if err != nil {
		return nil, err
	}

	body, err := encodeCSV(rs)
	if err != nil {
		return nil, err
	}

	client, err := s.client(ctx)
	if err != nil {
		return nil, common.Wrap(common.KindTransient, "storage unavailable", err)
	}

	bucket := s.config.S3Bucket
	key := s.storageKey(p.User.ID)

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	}); err != nil {
		return nil, common.Wrap(common.KindTransient, "failed to upload export", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignTTL))
	if err != nil {
		return nil, common.Wrap(common.KindTransient, "failed to sign export link", err)
	}

	return &Export{Key: key, URL: req.URL, Count: len(rs)}, nil
}

var csvHeader = []string{
	"record_id", "occurred_on", "kind", "amount", "category", "tags",
	"payment_method", "status", "frequency", "notes", "created_at", "updated_at",
}

func encodeCSV(rs []*models.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range rs {
		row := []string{
			r.ID,
			r.OccurredOn.Format(common.DateLayout),
			r.Kind,
			r.Amount.StringFixed(2),
			r.Category,
			r.Tags,
			r.PaymentMethod,
			r.Status,
			r.Frequency,
			r.Notes,
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
