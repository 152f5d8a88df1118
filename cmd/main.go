package main

import (
	"github.com/corray333/backend-labs/trade/internal/app"
	"github.com/corray333/backend-labs/trade/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
