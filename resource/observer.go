package resource

import (
	"go.uber.org/zap"
)

// LogObserver writes resource lifecycle events to a zap logger at debug level.
type LogObserver struct {
	logger *zap.Logger
	names  map[uint32]string
}

// NewLogObserver creates an observer. names maps type IDs to readable
// resource names and may be nil.
func NewLogObserver(logger *zap.Logger, names map[uint32]string) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger, names: names}
}

// OnResourceEvent implements Observer.
func (o *LogObserver) OnResourceEvent(e Event) {
	if ce := o.logger.Check(zap.DebugLevel, "resource "+e.Type.String()); ce != nil {
		fields := []zap.Field{
			zap.Uint32("handle", uint32(e.Handle)),
			zap.Uint32("type_id", e.TypeID),
		}
		if name, ok := o.names[e.TypeID]; ok {
			fields = append(fields, zap.String("type", name))
		}
		if e.Owner != 0 {
			fields = append(fields, zap.Uint32("owner", uint32(e.Owner)))
		}
		ce.Write(fields...)
	}
}
