package main

import (
	"context"
	"os"

	"github.com/DRSN-tech/imgshrink/pkg/logger"
)

//	@title			imgshrink API
//	@version		1.0
//	@description	Сервис сжатия изображений: загрузка, перекодирование и одноразовое скачивание.
//	@BasePath		/api/v1
func main() {
	log := logger.NewSlogLogger()

	if err := newRootCmd(log).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
