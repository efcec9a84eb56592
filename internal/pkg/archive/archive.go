package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gitroshpdx/finance-clarity-sub000/config"
	"github.com/gitroshpdx/finance-clarity-sub000/internal/model"
	"k8s.io/klog/v2"
)

// ObjectStore S3 兼容存储的写入接口
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client 创建 S3 客户端，配置了 endpoint 时使用 path-style 访问
func NewS3Client(ctx context.Context, cfg config.ArchiveConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Snapshot 导出文件内容
type Snapshot struct {
	ExportedAt time.Time       `json:"exported_at"`
	Count      int             `json:"count"`
	Articles   []model.Article `json:"articles"`
}

// Exporter 将已发布文章导出为 gzip 压缩的 JSON 快照
type Exporter struct {
	store  ObjectStore
	bucket string
	prefix string
	now    func() time.Time
}

func NewExporter(store ObjectStore, bucket, prefix string) *Exporter {
	return &Exporter{store: store, bucket: bucket, prefix: prefix, now: time.Now}
}

// Key 快照对象名
func (e *Exporter) Key(at time.Time) string {
	name := fmt.Sprintf("articles-%s.json.gz", at.UTC().Format("2006-01-02T15-04-05Z"))
	return path.Join(e.prefix, name)
}

// Export 上传快照并返回对象名
func (e *Exporter) Export(ctx context.Context, articles []model.Article) (string, error) {
	if e.bucket == "" {
		return "", errors.New("archive bucket is not configured")
	}
	at := e.now()
	data, err := encode(Snapshot{ExportedAt: at.UTC(), Count: len(articles), Articles: articles})
	if err != nil {
		return "", err
	}

	key := e.Key(at)
	_, err = e.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(e.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(data),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}
	klog.V(6).Infof("文章快照已上传: bucket=%s, key=%s, count=%d, size=%d", e.bucket, key, len(articles), len(data))
	return key, nil
}

func encode(snapshot Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gzipWriter).Encode(snapshot); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
