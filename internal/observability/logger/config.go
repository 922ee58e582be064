package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configura el logger.
type Config struct {
	// Env: "prod" y "staging" escriben JSON; cualquier otro valor, consola con colores.
	Env string

	// Level: "debug", "info", "warn", "error". Default: "info".
	Level string

	// ServiceName se agrega como campo "service". Default: "jwtkeys".
	ServiceName string

	Version string
}

func (c Config) structured() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "prod", "production", "staging":
		return true
	}
	return false
}

// build arma el core a mano: los logs van siempre a stderr para no mezclarse con
// la salida de los comandos del CLI (stdout).
func build(cfg Config) *zap.Logger {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "jwtkeys"
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	var (
		enc  zapcore.Encoder
		opts = []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	)
	if cfg.structured() {
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(parseLevel(cfg.Level)))
	l := zap.New(core, opts...).With(zap.String("service", cfg.ServiceName))
	if cfg.Version != "" {
		l = l.With(zap.String("version", cfg.Version))
	}
	return l
}

// parseLevel convierte un string a zapcore.Level (info si no se reconoce).
func parseLevel(lvl string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(lvl)))); err != nil {
		if strings.EqualFold(strings.TrimSpace(lvl), "warning") {
			return zapcore.WarnLevel
		}
		return zapcore.InfoLevel
	}
	return l
}
