package storage

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// ManuscriptTypes maps accepted extensions to their content type.
var ManuscriptTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".tex":  "application/x-tex",
	".zip":  "application/zip",
}

// ContentType returns the content type for filename's extension.
func ContentType(filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	ct, ok := ManuscriptTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
	return ct, nil
}

// ManuscriptKey generates the object key for a new manuscript.
// Keys are grouped by uploader and month so a bucket listing stays navigable.
//
// Example:
//
//	userID: "7b0c...", filename: "Paper.PDF", id: "e1f2..."
//	result: "manuscripts/7b0c.../2026/05/e1f2....pdf"
func ManuscriptKey(userID, filename string, now time.Time, id string) (string, error) {
	if _, err := ContentType(filename); err != nil {
		return "", err
	}
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("manuscripts/%s/%04d/%02d/%s%s", userID, now.Year(), int(now.Month()), id, ext), nil
}

// OwnedBy reports whether key was generated for userID by ManuscriptKey.
func OwnedBy(key, userID string) bool {
	return userID != "" && strings.HasPrefix(key, "manuscripts/"+userID+"/") && !strings.Contains(key, "..")
}

// IsURL reports whether p is already a fully-qualified http(s) URL.
func IsURL(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
