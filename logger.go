package clob

import "go.uber.org/zap"

var logger = zap.NewNop()

// SetLogger allows setting a custom logger. The engine is quiet by default
// so that it can be embedded as a library.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

func marketField(m *Market) zap.Field {
	return zap.String("market_id", m.MarketID)
}
