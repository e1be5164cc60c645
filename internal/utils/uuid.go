package utils

import (
	"github.com/google/uuid"
)

// GenerateUUID 生成一个新的 UUID v7
func GenerateUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// UploadFileName returns "<uuid>.<ext>" for a staged upload.
func UploadFileName(ext string) (string, error) {
	id, err := GenerateUUID()
	if err != nil {
		return "", err
	}
	if ext == "" {
		return id, nil
	}
	return id + "." + ext, nil
}

// IsValidUUID 检查字符串是否是有效的 UUID
func IsValidUUID(uuidStr string) bool {
	_, err := uuid.Parse(uuidStr)
	return err == nil
}
