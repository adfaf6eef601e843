package gcp

import (
	"fmt"
	"net/url"
	"strings"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

type ObjectStorageErrorCode string

const (
	ObjectStorageErrorInvalidMode         ObjectStorageErrorCode = "invalid_mode"
	ObjectStorageErrorMissingBucket       ObjectStorageErrorCode = "missing_bucket"
	ObjectStorageErrorMissingEmulatorHost ObjectStorageErrorCode = "missing_emulator_host"
	ObjectStorageErrorInvalidURL          ObjectStorageErrorCode = "invalid_url"
)

type ObjectStorageConfigError struct {
	Code  ObjectStorageErrorCode
	Value string
	Cause error
}

func (e *ObjectStorageConfigError) Error() string {
	if e == nil {
		return "invalid object storage config"
	}
	switch e.Code {
	case ObjectStorageErrorInvalidMode:
		return fmt.Sprintf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)", e.Value, ObjectStorageModeGCS, ObjectStorageModeGCSEmulator)
	case ObjectStorageErrorMissingBucket:
		return "missing GCS_BUCKET_NAME"
	case ObjectStorageErrorMissingEmulatorHost:
		return fmt.Sprintf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST", ObjectStorageModeGCSEmulator)
	case ObjectStorageErrorInvalidURL:
		return fmt.Sprintf("invalid url %q; expected absolute URL like http://fake-gcs:4443", e.Value)
	default:
		return "invalid object storage config"
	}
}

func (e *ObjectStorageConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Config is the resolved object storage setup. Mode is derived from the raw
// mode string and the emulator host by Resolve.
type Config struct {
	Mode            ObjectStorageMode
	BucketName      string
	EmulatorHost    string
	PublicBaseURL   string
	CredentialsJSON string
}

func (c Config) IsEmulator() bool { return c.Mode == ObjectStorageModeGCSEmulator }

// Resolve fills Mode from rawMode. An empty mode with an emulator host set
// falls back to emulator mode so local docker setups need one variable.
func Resolve(rawMode string, cfg Config) (Config, error) {
	cfg.BucketName = strings.TrimSpace(cfg.BucketName)
	cfg.EmulatorHost = strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")

	switch ObjectStorageMode(strings.ToLower(strings.TrimSpace(rawMode))) {
	case "":
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
		} else {
			cfg.Mode = ObjectStorageModeGCS
		}
	case ObjectStorageModeGCS:
		cfg.Mode = ObjectStorageModeGCS
	case ObjectStorageModeGCSEmulator:
		cfg.Mode = ObjectStorageModeGCSEmulator
	default:
		return cfg, &ObjectStorageConfigError{Code: ObjectStorageErrorInvalidMode, Value: rawMode}
	}

	if cfg.BucketName == "" {
		return cfg, &ObjectStorageConfigError{Code: ObjectStorageErrorMissingBucket}
	}
	if cfg.IsEmulator() {
		if cfg.EmulatorHost == "" {
			return cfg, &ObjectStorageConfigError{Code: ObjectStorageErrorMissingEmulatorHost}
		}
		if err := requireAbsoluteURL(cfg.EmulatorHost); err != nil {
			return cfg, err
		}
	}
	if cfg.PublicBaseURL != "" {
		if err := requireAbsoluteURL(cfg.PublicBaseURL); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func requireAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
		return &ObjectStorageConfigError{Code: ObjectStorageErrorInvalidURL, Value: raw, Cause: err}
	}
	return nil
}
