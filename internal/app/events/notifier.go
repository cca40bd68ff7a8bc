package events

// Notifier publica entradas de registro en el bus para que el panel las
// muestre. Los usecases lo reciben como interfaz pequeña y no conocen el bus.
type Notifier struct {
	bus *Bus
}

func NewNotifier(bus *Bus) *Notifier {
	return &Notifier{bus: bus}
}

func (n *Notifier) Info(source, message string) {
	n.publish(LevelInfo, source, message)
}

func (n *Notifier) Warn(source, message string) {
	n.publish(LevelWarn, source, message)
}

func (n *Notifier) Error(source, message string) {
	n.publish(LevelError, source, message)
}

func (n *Notifier) publish(level, source, message string) {
	if n == nil || n.bus == nil || message == "" {
		return
	}
	n.bus.Publish(TopicLog, NewLogDTO(level, source, message))
}
