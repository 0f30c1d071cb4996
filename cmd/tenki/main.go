// Command tenki は天気検索とユーザー操作履歴のAPIサーバーを起動する。
//
// 使い方:
//
//	tenki [serve|worker|migrate [down]|seed|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/tenki/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tenki: %v\n", err)
		os.Exit(1)
	}
}
