package app

import (
	"fmt"
	"io"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はWebサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションのクリーンアップを定期実行することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandHelp は使い方を表示することを示す。
	CommandHelp Command = "help"
)

// commands はusageに表示する順序でサブコマンドと説明を並べたもの。
var commands = []struct {
	cmd  Command
	desc string
}{
	{CommandServe, "start the web server (default)"},
	{CommandWorker, "purge expired sessions periodically"},
	{CommandMigrate, "apply database migrations"},
	{CommandHealthcheck, "probe /health on localhost (for container health checks)"},
	{CommandHelp, "show this message"},
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "-h", "--help":
		return CommandHelp
	}
	for _, c := range commands {
		if args[0] == string(c.cmd) {
			return c.cmd
		}
	}
	return CommandServe
}

// Usage はサブコマンドの一覧をwに出力する。
func Usage(w io.Writer) {
	fmt.Fprintln(w, "usage: contactman [command]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", c.cmd, c.desc)
	}
}
