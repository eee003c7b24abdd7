package utils

import (
	"net/url"
	"os"
	"strings"
)

// BuildObjectAccessURL maps an object key to the URL clients download it from.
//
// Env (first match wins):
//   - STORAGE_ACCESS_BASE_URL, optionally containing "{objectKey}"
//   - GCS_URL + GCS_BUCKET (gcs provider)
//   - SP_URL + SP_BUCKET (minio provider)
func BuildObjectAccessURL(objectKey string) string {
	base := strings.TrimSpace(os.Getenv("STORAGE_ACCESS_BASE_URL"))
	if base != "" {
		if strings.Contains(base, "{objectKey}") {
			escaped := objectKey
			if strings.Contains(base, "?") {
				escaped = url.QueryEscape(objectKey)
			}
			return strings.ReplaceAll(base, "{objectKey}", escaped)
		}
		if strings.Contains(base, "?") {
			return base + url.QueryEscape(objectKey)
		}
		return strings.TrimRight(base, "/") + "/" + objectKey
	}

	if GetStorageProvider() == StorageProviderGCS {
		gcsURL := strings.TrimSpace(os.Getenv("GCS_URL"))
		gcsBucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
		if gcsURL != "" && gcsBucket != "" {
			return "https://" + gcsURL + "/" + gcsBucket + "/" + objectKey
		}
		return objectKey
	}

	spURL := strings.TrimSpace(os.Getenv("SP_URL"))
	spBucket := strings.TrimSpace(os.Getenv("SP_BUCKET"))
	if spURL != "" && spBucket != "" {
		return "https://" + spBucket + "." + spURL + "/" + objectKey
	}
	return objectKey
}

// SafeObjectKey rejects keys that could escape the owner prefix.
func SafeObjectKey(objectKey string) bool {
	objectKey = strings.TrimSpace(objectKey)
	return objectKey != "" && !strings.Contains(objectKey, "..") && !strings.HasPrefix(objectKey, "/")
}
