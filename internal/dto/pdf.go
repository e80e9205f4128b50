package dto

// PresignUploadResponse hands the client a presigned PUT URL plus the
// storage key it must confirm after uploading.
type PresignUploadResponse struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
}

// ConfirmUploadRequest records a completed PDF upload against a paper.
type ConfirmUploadRequest struct {
	Key       string `json:"key" validate:"required"`
	SizeBytes int64  `json:"size_bytes" validate:"required,gt=0"`
}

// PresignDownloadResponse hands the client a presigned GET URL.
type PresignDownloadResponse struct {
	DownloadURL string `json:"download_url"`
}
