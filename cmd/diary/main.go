// Command diary は気分日記アプリのサーバーを起動する。
//
// サブコマンド:
//
//	serve        日記アプリのWebサーバー（デフォルト）
//	gateway      参照実装の認証・メトリクス設定ゲートウェイ
//	migrate      データベースマイグレーションの適用
//	healthcheck  /health への疎通確認（Dockerヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
