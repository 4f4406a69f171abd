package app

import (
	"fmt"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はフィードバック画面とAPIを提供するHTTPサーバーを起動する。引数省略時の既定値。
	CommandServe Command = "serve"
	// CommandMigrate は未適用のマイグレーションをすべて適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中サーバーの /health を確認して終了する。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// commands はサポートするサブコマンドの一覧。usageの表示順でもある。
var commands = []Command{CommandServe, CommandMigrate, CommandHealthcheck}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空の場合はCommandServeを返す。2番目以降の引数は無視する。
// 未知のサブコマンドはエラーとし、打ち間違いでサーバーが起動しないようにする。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 || args[0] == "" {
		return CommandServe, nil
	}

	for _, c := range commands {
		if args[0] == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown command %q (available: %s)", args[0], usage())
}

// usage はサブコマンド一覧を "serve, migrate, healthcheck" の形式で返す。
func usage() string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
