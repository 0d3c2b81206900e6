package alicloud

import (
	"errors"
)

var (
	ErrMissingAccessKeyID     = errors.New("ALICLOUD_ACCESS_KEY_ID environment variable is not set")
	ErrMissingAccessKeySecret = errors.New("ALICLOUD_ACCESS_KEY_SECRET environment variable is not set")
	ErrMissingConfig          = errors.New("alicloud credentials not found: set ALICLOUD_ACCESS_KEY_ID/ALICLOUD_ACCESS_KEY_SECRET or write ~/.sftpproxy/credentials")
	ErrResourceNotFound       = errors.New("resource not found")
	ErrInstanceNotRunning     = errors.New("ECS instance is not running")
	ErrNoPublicAddress        = errors.New("ECS instance has no public IP or EIP")
)
