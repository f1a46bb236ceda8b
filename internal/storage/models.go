package storage

// ObjectMetadata is the part of a Firebase Storage object resource we use
type ObjectMetadata struct {
	Name           string `json:"name"`
	Bucket         string `json:"bucket"`
	ContentType    string `json:"contentType"`
	Size           string `json:"size"`
	DownloadTokens string `json:"downloadTokens"`
}

// apiError is the error envelope of the Firebase Storage REST API
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
