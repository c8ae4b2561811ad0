package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kondo/esgportal/internal/model"
	"github.com/kondo/esgportal/internal/storage"
)

// ObjectStorage は添付ファイル操作に必要なオブジェクトストレージの機能。
type ObjectStorage interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// AddAttachmentInput は添付ファイル登録の入力。
type AddAttachmentInput struct {
	ResponseID  string
	FileName    string
	ContentType string
	FileSize    int64
}

// AddAttachment は添付ファイルのメタデータを登録し、アップロード用の
// 署名付きURLを返す。ファイル本体はクライアントが直接アップロードする。
func (s *Service) AddAttachment(ctx context.Context, profile *model.Profile, input AddAttachmentInput) (*model.Attachment, string, error) {
	response, err := s.ownedResponse(ctx, profile, input.ResponseID)
	if err != nil {
		return nil, "", err
	}

	key := storage.BuildObjectKey(response.ID, input.FileName)
	uploadURL, err := s.storage.PresignUpload(ctx, key, input.ContentType)
	if err != nil {
		return nil, "", fmt.Errorf("アップロードURLの発行に失敗しました: %w", err)
	}

	attachment := &model.Attachment{
		ID:          uuid.New().String(),
		ResponseID:  response.ID,
		FileName:    input.FileName,
		FilePath:    key,
		FileSize:    input.FileSize,
		ContentType: input.ContentType,
		CreatedAt:   time.Now(),
	}
	if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
		return nil, "", fmt.Errorf("添付ファイルの登録に失敗しました: %w", err)
	}

	return attachment, uploadURL, nil
}

// AttachmentURL はダウンロード用の署名付きURLを返す。
func (s *Service) AttachmentURL(ctx context.Context, profile *model.Profile, attachmentID string) (string, error) {
	attachment, err := s.ownedAttachment(ctx, profile, attachmentID)
	if err != nil {
		return "", err
	}

	url, err := s.storage.PresignDownload(ctx, attachment.FilePath)
	if err != nil {
		return "", fmt.Errorf("ダウンロードURLの発行に失敗しました: %w", err)
	}
	return url, nil
}

// ListAttachments は回答の添付ファイル一覧を返す。
func (s *Service) ListAttachments(ctx context.Context, profile *model.Profile, responseID string) ([]*model.Attachment, error) {
	if _, err := s.ownedResponse(ctx, profile, responseID); err != nil {
		return nil, err
	}

	attachments, err := s.attachmentRepo.ListByResponseID(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("添付ファイル一覧の取得に失敗しました: %w", err)
	}
	return attachments, nil
}

// DeleteAttachment は添付ファイルを削除する。
// オブジェクト本体の削除失敗はメタデータ削除を妨げない。
func (s *Service) DeleteAttachment(ctx context.Context, profile *model.Profile, attachmentID string) error {
	attachment, err := s.ownedAttachment(ctx, profile, attachmentID)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteObject(ctx, attachment.FilePath); err != nil {
		slog.Warn("failed to delete attachment object",
			slog.String("attachment_id", attachmentID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.attachmentRepo.DeleteByID(ctx, attachmentID); err != nil {
		return fmt.Errorf("添付ファイルの削除に失敗しました: %w", err)
	}
	return nil
}

// ownedResponse は回答が提出者自身の企業の提出物に属することを確認して返す。
// 他社の回答は存在しないものとして扱う。
func (s *Service) ownedResponse(ctx context.Context, profile *model.Profile, responseID string) (*model.Response, error) {
	if profile.CompanyID == "" {
		return nil, model.NewNoCompanyAssignmentError()
	}

	response, err := s.responseRepo.FindByID(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("回答の取得に失敗しました: %w", err)
	}
	if response == nil {
		return nil, model.NewResponseNotFoundError(responseID)
	}

	submission, err := s.submissionRepo.FindByID(ctx, response.SubmissionID)
	if err != nil {
		return nil, fmt.Errorf("提出物の取得に失敗しました: %w", err)
	}
	if submission == nil || submission.CompanyID != profile.CompanyID {
		return nil, model.NewResponseNotFoundError(responseID)
	}

	return response, nil
}

// ownedAttachment は添付ファイルが提出者自身の回答に属することを確認して返す。
func (s *Service) ownedAttachment(ctx context.Context, profile *model.Profile, attachmentID string) (*model.Attachment, error) {
	attachment, err := s.attachmentRepo.FindByID(ctx, attachmentID)
	if err != nil {
		return nil, fmt.Errorf("添付ファイルの取得に失敗しました: %w", err)
	}
	if attachment == nil {
		return nil, model.NewAttachmentNotFoundError(attachmentID)
	}

	if _, err := s.ownedResponse(ctx, profile, attachment.ResponseID); err != nil {
		return nil, model.NewAttachmentNotFoundError(attachmentID)
	}
	return attachment, nil
}
