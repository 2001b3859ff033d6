// Package logger wraps zap with a global sugared logger, context-scoped
// loggers (ToContext/FromContext/WithName/WithKV/WithFields), level parsing
// and leveled helpers such as InfoKV and Errorf.
//
// Services put a named logger into the context once at their entry point and
// every deeper call logs through the context.
package logger
