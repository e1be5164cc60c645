// utils/path.go - Path handling utilities
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

var (
	AppRootDir   = "./.code-reviewer"
	LogsDir      = "./.code-reviewer/logs"
	CacheDir     = "./.code-reviewer/cache"
	UploadTmpDir = "./.code-reviewer/tmp"
	DbDir        = "./.code-reviewer/cache/db"
)

// GetRootDir gets cross-platform root directory
// Returns paths like Windows: %USERPROFILE%/.appname, Linux/macOS: ~/.appname
func GetRootDir(appName string) (string, error) {
	var rootDir string

	switch runtime.GOOS {
	case "windows":
		if userProfile := os.Getenv("USERPROFILE"); userProfile != "" {
			rootDir = filepath.Join(userProfile, "."+appName)
		} else if appData := os.Getenv("APPDATA"); appData != "" {
			rootDir = filepath.Join(appData, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			rootDir = filepath.Join(homeDir, "."+appName)
		}
	default:
		// XDG_CONFIG_HOME wins on Linux when set
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" && runtime.GOOS != "darwin" {
			rootDir = filepath.Join(xdgConfig, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			rootDir = filepath.Join(homeDir, "."+appName)
		}
	}

	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return "", err
	}

	AppRootDir = rootDir

	return rootDir, nil
}

// GetLogDir gets log directory
func GetLogDir(rootPath string) (string, error) {
	logPath, err := ensureSubDir(rootPath, "logs")
	if err != nil {
		return "", err
	}
	LogsDir = logPath
	return logPath, nil
}

// GetCacheDir gets cache directory
func GetCacheDir(rootPath string) (string, error) {
	cachePath, err := ensureSubDir(rootPath, "cache")
	if err != nil {
		return "", err
	}
	CacheDir = cachePath
	return cachePath, nil
}

// GetUploadTmpDir gets temporary upload directory
func GetUploadTmpDir(rootPath string) (string, error) {
	tmpPath, err := ensureSubDir(rootPath, "tmp")
	if err != nil {
		return "", err
	}
	UploadTmpDir = tmpPath
	return tmpPath, nil
}

func GetCacheDbDir(cachePath string) (string, error) {
	dbPath, err := ensureSubDir(cachePath, "db")
	if err != nil {
		return "", err
	}
	DbDir = dbPath
	return dbPath, nil
}

func ensureSubDir(parent, name string) (string, error) {
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		return "", fmt.Errorf("path %s does not exist", parent)
	}

	sub := filepath.Join(parent, name)
	if err := os.MkdirAll(sub, 0755); err != nil {
		return "", err
	}
	return sub, nil
}
