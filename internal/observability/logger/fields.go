package logger

import (
	"time"

	"go.uber.org/zap"
)

// Claves de los campos que comparten todos los paquetes. Los dashboards y
// las queries sobre los logs JSON dependen de estos nombres.
const (
	keyService = "service"
	keyVersion = "version"
	keyNodeID  = "node_id"

	keyRequestID = "request_id"
	keyMethod    = "method"
	keyPath      = "path"
	keyStatus    = "status"
	keyDuration  = "duration"
	keyClientIP  = "client_ip"

	keyDatasetID = "dataset_id"
	keyLicenseID = "license_id"
	keyAccount   = "account"
	keyCaller    = "caller"
	keyMutation  = "mutation"
	keySeq       = "seq"
	keySink      = "sink"

	keyComponent = "component"
	keyOp        = "op"
	keyLayer     = "layer"
	keyAttempt   = "attempt"
	keyCount     = "count"
)

// HTTP de operación.

func RequestID(v string) zap.Field       { return zap.String(keyRequestID, v) }
func Method(v string) zap.Field          { return zap.String(keyMethod, v) }
func Path(v string) zap.Field            { return zap.String(keyPath, v) }
func Status(code int) zap.Field          { return zap.Int(keyStatus, code) }
func Duration(d time.Duration) zap.Field { return zap.Duration(keyDuration, d) }
func ClientIP(v string) zap.Field        { return zap.String(keyClientIP, v) }

// Ledger.

func DatasetID(id uint64) zap.Field { return zap.Uint64(keyDatasetID, id) }
func LicenseID(id string) zap.Field { return zap.String(keyLicenseID, id) }

// Account es la cuenta afectada; Caller la que firma la mutación.
func Account(v string) zap.Field  { return zap.String(keyAccount, v) }
func Caller(v string) zap.Field   { return zap.String(keyCaller, v) }
func Mutation(v string) zap.Field { return zap.String(keyMutation, v) }
func Seq(n uint64) zap.Field      { return zap.Uint64(keySeq, n) }
func Sink(name string) zap.Field  { return zap.String(keySink, name) }

// Proceso.

func Component(v string) zap.Field { return zap.String(keyComponent, v) }
func Op(v string) zap.Field        { return zap.String(keyOp, v) }

// Layer distingue facade, fsm y adapters dentro de un mismo componente.
func Layer(v string) zap.Field  { return zap.String(keyLayer, v) }
func NodeID(v string) zap.Field { return zap.String(keyNodeID, v) }
func Err(err error) zap.Field   { return zap.Error(err) }
func Attempt(n int) zap.Field   { return zap.Int(keyAttempt, n) }
func Count(n int) zap.Field     { return zap.Int(keyCount, n) }

func String(key, v string) zap.Field { return zap.String(key, v) }
