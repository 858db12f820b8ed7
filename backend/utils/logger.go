package utils

import (
	"go.uber.org/zap"
)

// InitLogger returns a JSON production logger for env "production" and a
// human readable development logger otherwise.
func InitLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
