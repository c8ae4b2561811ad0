// Package storage は添付ファイル用のS3互換オブジェクトストレージを提供する。
//
// ファイル本体はサーバーを経由せず、署名付きURLでクライアントが直接
// アップロード・ダウンロードする。サーバーはメタデータ（attachments行）と
// 署名の発行のみを担う。
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// 署名付きURLの有効期間。
const presignExpiry = 15 * time.Minute

// Config はオブジェクトストレージ接続の設定。
type Config struct {
	Endpoint  string // 空の場合はAWS既定のエンドポイントを使用（MinIO等はここで指定）
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// ObjectStorage は署名付きURL発行とオブジェクト削除のインターフェース。
type ObjectStorage interface {
	// PresignUpload はアップロード用の署名付きPUT URLを発行する。
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	// PresignDownload はダウンロード用の署名付きGET URLを発行する。
	PresignDownload(ctx context.Context, key string) (string, error)
	// DeleteObject はオブジェクトを削除する。存在しないキーもエラーにしない。
	DeleteObject(ctx context.Context, key string) error
}

// Client はObjectStorageのS3実装。
type Client struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewClient はS3クライアントを生成する。起動時に1回だけ呼び出す。
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO等のセルフホスト環境は仮想ホスト形式を解決できない
			o.UsePathStyle = true
		}
	})

	return &Client{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

// BuildObjectKey は添付ファイルの格納キーを生成する。
// 同名ファイルの衝突を避けるためUUIDのプレフィックスを挟む。
func BuildObjectKey(responseID, fileName string) string {
	return fmt.Sprintf("attachments/%s/%s/%s", responseID, uuid.New(), fileName)
}

// PresignUpload はアップロード用の署名付きPUT URLを発行する。
func (c *Client) PresignUpload(ctx context.Context, key, contentType string) (string, error) {
	req, err := c.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}
	return req.URL, nil
}

// PresignDownload はダウンロード用の署名付きGET URLを発行する。
func (c *Client) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return req.URL, nil
}

// DeleteObject はオブジェクトを削除する。
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

var _ ObjectStorage = (*Client)(nil)
