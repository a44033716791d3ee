package consoles

type Console interface {
	Printf(format string, a ...any)
	Warnf(format string, a ...any)

	Prepare(msg string) string

	PushPrefix(format string, a ...any)
	PopPrefix()
}
