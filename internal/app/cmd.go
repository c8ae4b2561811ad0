package app

// Command はバイナリの起動モードを表すサブコマンド。
type Command string

const (
	// CommandServe はAPIサーバーとして起動する。
	CommandServe Command = "serve"
	// CommandWorker は通知・クリーンアップワーカーとして起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションのみを実行して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中サーバーの死活確認を行う。
	// distrolessイメージにはシェルがないため、Dockerヘルスチェックはこれを使う。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand は先頭のコマンドライン引数をサブコマンドとして解釈する。
// 引数なし・未知の値はいずれもCommandServeにフォールバックする。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch Command(args[0]) {
	case CommandWorker, CommandMigrate, CommandHealthcheck:
		return Command(args[0])
	default:
		return CommandServe
	}
}
