package filestorage

import (
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7/pkg/policy"
)

// publicReadPolicy returns the S3 bucket policy document granting anonymous list and
// read on bucketName, the S3 equivalent of Azure's "container" public access level.
func publicReadPolicy(bucketName string) (string, error) {
	statements := policy.SetPolicy(nil, policy.BucketPolicyReadOnly, bucketName, "")
	doc, err := json.Marshal(policy.BucketAccessPolicy{
		Version:    "2012-10-17",
		Statements: statements,
	})
	if err != nil {
		return "", fmt.Errorf("marshal bucket policy: %w", err)
	}
	return string(doc), nil
}
