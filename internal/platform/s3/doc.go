// Package s3 uploads backups to S3-compatible object storage.
//
// Backups of replaced configuration files are copied offsite when a bucket
// is configured. The bucket is created on first use.
package s3
