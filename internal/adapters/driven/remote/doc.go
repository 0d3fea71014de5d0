// Package remote stages pipeline configuration documents to local paths
// before a scheduled run. s3:// URIs download through the MinIO S3 client;
// anything else is treated as a local path and copied.
package remote
