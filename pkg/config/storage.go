package config

// StorageConfig selects the blob store campaign attachments are read from.
type StorageConfig struct {
	Mode      string // local | s3
	UploadDir string
	AWSRegion string
	Bucket    string
	Prefix    string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Mode:      getEnv("STORAGE_MODE", "local"),
		UploadDir: getEnv("UPLOAD_DIR", "./uploads"),
		AWSRegion: getEnv("AWS_REGION", "us-east-1"),
		Bucket:    getEnv("AWS_BUCKET", "placement-documents"),
		Prefix:    getEnv("AWS_BUCKET_PREFIX", ""),
	}
}
