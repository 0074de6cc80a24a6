package app

import "strings"

// Command は diary バイナリのサブコマンド。
type Command string

const (
	CommandServe       Command = "serve"
	CommandGateway     Command = "gateway"
	CommandMigrate     Command = "migrate"
	CommandHealthcheck Command = "healthcheck"
)

// commandHelp はサブコマンドごとの説明。Usageの出力順もこの並び。
var commandHelp = []struct {
	cmd  Command
	help string
}{
	{CommandServe, "日記アプリのWebサーバーを起動する（既定）"},
	{CommandGateway, "認証・メトリクス設定ゲートウェイの参照実装を起動する"},
	{CommandMigrate, "DATABASE_URL のスキーマを最新にする"},
	{CommandHealthcheck, "localhost の /health を確認する（distroless用）"},
}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 空または未知の値はCommandServeとして扱い、残りの引数は見ない。
func ParseCommand(args []string) Command {
	cmd, _ := lookupCommand(args)
	return cmd
}

// lookupCommand はParseCommandと同じ解釈を行い、既知のコマンドだったかも返す。
func lookupCommand(args []string) (Command, bool) {
	if len(args) == 0 {
		return CommandServe, true
	}
	for _, c := range commandHelp {
		if string(c.cmd) == args[0] {
			return c.cmd, true
		}
	}
	return CommandServe, false
}

// Usage はサブコマンド一覧を整形して返す。
func Usage() string {
	var sb strings.Builder
	sb.WriteString("usage: diary [command]\n\ncommands:\n")
	for _, c := range commandHelp {
		sb.WriteString("  ")
		sb.WriteString(string(c.cmd))
		sb.WriteString(strings.Repeat(" ", 13-len(c.cmd)))
		sb.WriteString(c.help)
		sb.WriteString("\n")
	}
	return sb.String()
}
