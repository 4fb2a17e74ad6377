package filestorage

import (
	"context"
	"fmt"

	"formdesk.link/configs"
)

// NewFromEnv builds the storage selected by UPLOAD_DRIVER (local or minio).
func NewFromEnv(ctx context.Context) (FileStorage, error) {
	switch driver := configs.GetEnv("UPLOAD_DRIVER", "local"); driver {
	case "local":
		return NewLocalStorage(configs.GetEnv("UPLOAD_DIR", "uploads"))
	case "minio":
		return NewMinioStorage(ctx, MinioConfig{
			Endpoint:  configs.GetEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: configs.GetEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: configs.GetEnv("MINIO_SECRET_KEY", ""),
			Bucket:    configs.GetEnv("MINIO_BUCKET", "formdesk-uploads"),
			UseSSL:    configs.GetEnvBool("MINIO_USE_SSL", false),
		})
	default:
		return nil, fmt.Errorf("unsupported UPLOAD_DRIVER %q", driver)
	}
}
