package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/rs-systems/healthwatch/internal/config"
	"github.com/rs-systems/healthwatch/internal/models"
)

// S3 standard storage pricing used for the monthly cost estimate. Request
// counts are rough projections, not billing data.
const (
	s3StoragePricePerGB = 0.023
	s3PutPricePer1k     = 0.005
	s3GetPricePer1k     = 0.0004
	s3TransferPricePerGB = 0.09

	maxLargeFiles = 50
)

// S3Client is the slice of the S3 API the storage probe uses.
type S3Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// StorageProbe inspects the damage-photo bucket: total size by prefix,
// oversized uploads and a monthly cost estimate.
type StorageProbe struct {
	client     S3Client
	bucket     string
	prefix     string
	thresholds config.Thresholds
	log        *logrus.Logger
}

func NewStorageProbe(ctx context.Context, cfg config.AWSConfig, thresholds config.Thresholds, log *logrus.Logger) (*StorageProbe, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.S3BucketName == "" {
		return nil, fmt.Errorf("storage probe requires AWS credentials and a bucket name")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &StorageProbe{
		client:     s3.NewFromConfig(awsCfg),
		bucket:     cfg.S3BucketName,
		prefix:     cfg.DamagePhotosPrefix,
		thresholds: thresholds,
		log:        log,
	}, nil
}

func (p *StorageProbe) Component() models.Component { return models.ComponentStorage }

func (p *StorageProbe) CheckHealth(ctx context.Context) models.HealthCheckResult {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := time.Now()
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &p.bucket})
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	result := models.NewHealthCheckResult(models.ComponentStorage, models.StatusHealthy,
		fmt.Sprintf("Bucket %s is accessible", p.bucket))
	result.ResponseTimeMs = &elapsed
	result.Details = map[string]interface{}{"bucket": p.bucket}
	if err != nil {
		result.Status = models.StatusUnhealthy
		result.Message = fmt.Sprintf("Bucket %s is not accessible: %v", p.bucket, err)
	}
	return result
}

func (p *StorageProbe) Monitor(ctx context.Context) *models.ComponentReport {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	objects, err := p.listObjects(ctx)
	if err != nil {
		return errorReport(models.ComponentStorage, err)
	}

	metrics := models.StorageMetrics{
		BucketSize: p.bucketSize(objects),
		LargeFiles: p.largeFiles(objects),
	}
	metrics.EstimatedCosts = p.estimateCosts(metrics.BucketSize)

	return &models.ComponentReport{
		Component: models.ComponentStorage,
		Health:    p.healthFromMetrics(metrics),
		Metrics:   metrics,
		Timestamp: time.Now(),
	}
}

type objectInfo struct {
	key          string
	size         int64
	lastModified time.Time
	storageClass string
}

func (p *StorageProbe) listObjects(ctx context.Context) ([]objectInfo, error) {
	var objects []objectInfo
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: &p.bucket,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", p.bucket, err)
		}
		for _, obj := range page.Contents {
			info := objectInfo{storageClass: string(obj.StorageClass)}
			if obj.Key != nil {
				info.key = *obj.Key
			}
			if obj.Size != nil {
				info.size = *obj.Size
			}
			if obj.LastModified != nil {
				info.lastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}

func (p *StorageProbe) bucketSize(objects []objectInfo) models.BucketSize {
	size := models.BucketSize{ByPrefix: make(map[string]models.PrefixStats)}
	prefix := p.prefix
	if prefix == "" {
		prefix = "damage-photos/"
	}

	for _, obj := range objects {
		size.TotalSizeBytes += obj.size
		size.ObjectCount++

		bucket := "other"
		if strings.HasPrefix(obj.key, prefix) {
			rest := strings.TrimPrefix(obj.key, prefix)
			switch {
			case strings.HasPrefix(rest, "before/"):
				bucket = "before"
			case strings.HasPrefix(rest, "after/"):
				bucket = "after"
			default:
				bucket = "damage-photos"
			}
		}
		stats := size.ByPrefix[bucket]
		stats.SizeGB += float64(obj.size) / (1024 * 1024 * 1024)
		stats.ObjectCount++
		size.ByPrefix[bucket] = stats
	}

	for k, stats := range size.ByPrefix {
		stats.SizeGB = round2(stats.SizeGB)
		size.ByPrefix[k] = stats
	}
	size.TotalSizeGB = round2(float64(size.TotalSizeBytes) / (1024 * 1024 * 1024))
	return size
}

func (p *StorageProbe) largeFiles(objects []objectInfo) []models.LargeFile {
	thresholdBytes := int64(p.thresholds.PhotoSizeMB * 1024 * 1024)

	large := []models.LargeFile{}
	for _, obj := range objects {
		if obj.size <= thresholdBytes {
			continue
		}
		large = append(large, models.LargeFile{
			Key:          obj.key,
			SizeMB:       round2(float64(obj.size) / (1024 * 1024)),
			LastModified: obj.lastModified,
			StorageClass: obj.storageClass,
		})
	}
	sort.Slice(large, func(i, j int) bool { return large[i].SizeMB > large[j].SizeMB })
	if len(large) > maxLargeFiles {
		large = large[:maxLargeFiles]
	}
	return large
}

func (p *StorageProbe) estimateCosts(size models.BucketSize) models.CostEstimate {
	// Assume roughly 10% of objects are written and each object read twice
	// per month.
	putRequests := float64(size.ObjectCount) * 0.1
	getRequests := float64(size.ObjectCount) * 2
	transferGB := size.TotalSizeGB * 0.05

	est := models.CostEstimate{
		Storage:      round2(size.TotalSizeGB * s3StoragePricePerGB),
		PutRequests:  round2(putRequests / 1000 * s3PutPricePer1k),
		GetRequests:  round2(getRequests / 1000 * s3GetPricePer1k),
		DataTransfer: round2(transferGB * s3TransferPricePerGB),
	}
	est.TotalEstimated = round2(est.Storage + est.PutRequests + est.GetRequests + est.DataTransfer)
	return est
}

func (p *StorageProbe) healthFromMetrics(m models.StorageMetrics) models.HealthCheckResult {
	result := models.NewHealthCheckResult(models.ComponentStorage, models.StatusHealthy,
		fmt.Sprintf("Storage at %.2f GB", m.BucketSize.TotalSizeGB))
	switch {
	case m.BucketSize.TotalSizeGB > p.thresholds.S3StorageGB:
		result.Status = models.StatusDegraded
		result.Message = fmt.Sprintf("Storage usage %.2f GB exceeds %.0f GB",
			m.BucketSize.TotalSizeGB, p.thresholds.S3StorageGB)
	case m.EstimatedCosts.TotalEstimated > p.thresholds.S3CostUSD:
		result.Status = models.StatusDegraded
		result.Message = fmt.Sprintf("Estimated monthly cost $%.2f exceeds $%.0f",
			m.EstimatedCosts.TotalEstimated, p.thresholds.S3CostUSD)
	}
	result.Details = map[string]interface{}{
		"total_size_gb": m.BucketSize.TotalSizeGB,
		"object_count":  m.BucketSize.ObjectCount,
	}
	return result
}
