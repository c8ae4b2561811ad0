// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す。閉じた集合であり、この3種以外の値は無効。
type Role string

const (
	// RoleSubmitter は自社のESG質問票に回答する企業担当者。
	RoleSubmitter Role = "Submitter"
	// RoleReviewer は提出済み回答の承認・差戻しを行うレビュアー。
	RoleReviewer Role = "Reviewer"
	// RoleAdmin は企業・ユーザー・提出期限を管理する管理者。
	RoleAdmin Role = "Admin"
)

// Valid はRoleが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleSubmitter, RoleReviewer, RoleAdmin:
		return true
	}
	return false
}

// Profile は認証済みユーザーに紐づくアプリケーションレベルのレコードを表す。
// 有効なセッションは必ず1件のProfileに解決できなければならない。
// 解決できないセッション（孤児セッション）はエラー状態として強制ログアウトされる。
type Profile struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	CompanyID    string // 所属企業ID。Reviewer/Adminでは空の場合がある
	CreatedAt    time.Time
}

// Session はログインセッション（不透明な認証クレデンシャル）を表す。
// セッションは認証済みアイデンティティのメールアドレスのみを保持し、
// Profileへの解決はセッションコントローラが行う。usersテーブルとは
// 外部キーで結ばない: プロフィール行が削除されてもセッション自体は
// 残存し得る（孤児セッション）。この状態の検出と強制サインアウトが
// コントローラの責務である。
type Session struct {
	ID        string
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Company は評価対象の企業を表す。
type Company struct {
	ID     string
	Code   string
	Name   string
	Region string
	Sector string
}
