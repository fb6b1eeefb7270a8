package domain

import "io"

// UploadFile is one image destined for the product with the given name
type UploadFile struct {
	Filename    string
	ProductName string
	Content     io.Reader
}

// UploadResult is the backend's per-file outcome of a mass upload
type UploadResult struct {
	Filename    string `json:"filename"`
	ProductName string `json:"product_name"`
	Success     bool   `json:"success"`
	URL         string `json:"url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// UploadReport summarizes a mass image upload
type UploadReport struct {
	TotalFiles        int            `json:"total_files"`
	SuccessfulUploads int            `json:"successful_uploads"`
	FailedUploads     int            `json:"failed_uploads"`
	Results           []UploadResult `json:"results,omitempty"`
}
