// Package testutil provides test helper functions.
package testutil

import (
	"bytes"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// StringPtr returns a pointer to the given string.
// This is useful for AWS SDK inputs that require string pointers.
func StringPtr(s string) *string {
	return aws.String(s)
}

// Int32Ptr returns a pointer to the given int32.
func Int32Ptr(i int32) *int32 {
	return aws.Int32(i)
}

// PartURL builds a fake presigned URL that carries the part tuple in its query,
// so fakes can recover the part number from the URL alone.
func PartURL(base, key, uploadID string, partNumber int32) string {
	q := url.Values{}
	q.Set("partNumber", strconv.Itoa(int(partNumber)))
	q.Set("uploadId", uploadID)
	return fmt.Sprintf("%s/%s?%s", base, key, q.Encode())
}

// PartNumberFromURL extracts the partNumber query parameter of a URL built by PartURL.
func PartNumberFromURL(raw string) int32 {
	u, err := url.Parse(raw)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(u.Query().Get("partNumber"))
	if err != nil {
		return 0
	}
	return int32(n)
}

// GenerateTestData creates deterministic test data of the specified size.
func GenerateTestData(size int64) []byte {
	rng := rand.New(rand.NewSource(int64(size)))
	data := make([]byte, size)
	_, _ = rng.Read(data)
	return data
}

// Reader wraps data in an io.ReaderAt.
func Reader(data []byte) *bytes.Reader {
	return bytes.NewReader(data)
}

// MiB is one mebibyte.
const MiB = int64(1 << 20)
