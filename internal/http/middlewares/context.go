package middlewares

import "context"

type ctxKey int

const (
	ctxRequestID ctxKey = iota
	ctxOperator
	ctxAccess
)

// accessRecord lo crea WithLogging y lo completan los middlewares de adentro;
// así la línea de acceso ve datos que se agregan más abajo en la cadena.
type accessRecord struct {
	operator string
}

func withAccessRecord(ctx context.Context) (context.Context, *accessRecord) {
	rec := &accessRecord{}
	return context.WithValue(ctx, ctxAccess, rec), rec
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestID, requestID)
}

// GetRequestID devuelve el request id del contexto, o "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

func setOperator(ctx context.Context, sub string) context.Context {
	if rec, ok := ctx.Value(ctxAccess).(*accessRecord); ok {
		rec.operator = sub
	}
	return context.WithValue(ctx, ctxOperator, sub)
}

// GetOperator devuelve el subject del token operativo validado, o "".
func GetOperator(ctx context.Context) string {
	v, _ := ctx.Value(ctxOperator).(string)
	return v
}
