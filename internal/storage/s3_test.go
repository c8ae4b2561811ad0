package storage

import (
	"context"
	"strings"
	"testing"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), Config{
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		Bucket:    "attachments-test",
		AccessKey: "test-access-key",
		SecretKey: "test-secret-key",
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

// 署名付きURLの生成はオフラインで完結するため、実ストレージなしで検証できる。
func TestPresignUpload_ProducesSignedURL(t *testing.T) {
	c := testClient(t)

	url, err := c.PresignUpload(context.Background(), "attachments/resp-1/key/report.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("PresignUpload() error = %v", err)
	}

	if !strings.Contains(url, "attachments-test") {
		t.Errorf("URL should reference the bucket: %s", url)
	}
	if !strings.Contains(url, "report.pdf") {
		t.Errorf("URL should reference the object key: %s", url)
	}
	if !strings.Contains(url, "X-Amz-Signature=") {
		t.Errorf("URL should carry a signature: %s", url)
	}
}

func TestPresignDownload_ProducesSignedURL(t *testing.T) {
	c := testClient(t)

	url, err := c.PresignDownload(context.Background(), "attachments/resp-1/key/report.pdf")
	if err != nil {
		t.Fatalf("PresignDownload() error = %v", err)
	}

	if !strings.Contains(url, "X-Amz-Signature=") {
		t.Errorf("URL should carry a signature: %s", url)
	}
}

func TestBuildObjectKey_IsCollisionResistant(t *testing.T) {
	k1 := BuildObjectKey("resp-1", "report.pdf")
	k2 := BuildObjectKey("resp-1", "report.pdf")

	if !strings.HasPrefix(k1, "attachments/resp-1/") {
		t.Errorf("key should be namespaced by response: %s", k1)
	}
	if !strings.HasSuffix(k1, "/report.pdf") {
		t.Errorf("key should keep the original file name: %s", k1)
	}
	if k1 == k2 {
		t.Error("keys for the same file name must not collide")
	}
}
