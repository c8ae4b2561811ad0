// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizerService は回答値・コメント等の自由記述入力をサニタイズし、
// 格納データ経由のXSSからレビュー画面等の閲覧者を保護する。
// 質問票の回答はプレーンテキストであり、HTMLをレンダリングする正当な
// 理由がないため、許可リストは空（全タグ除去）とする。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizerService は自由記述入力のサニタイズ機能のインターフェースを定義する。
// 回答・コメントの保存前に使用される。
type InputSanitizerService interface {
	// Sanitize は入力からHTMLタグを全て除去したプレーンテキストを返す。
	// script, iframe等のタグはタグごと除去され、テキスト内容のみ残る。
	// 前後の空白は取り除かれる。空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// inputSanitizer はInputSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（許可タグなし）を使用し、全てのマークアップを除去する。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグを全て除去したプレーンテキストを返す。
func (s *inputSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
