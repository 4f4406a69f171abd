// Command feedbackapp はフィードバック収集サービスを起動する。
//
//	feedbackapp [serve|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/feedbackapp/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
