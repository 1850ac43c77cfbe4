package config

type WorkerKeyStruct struct {
	// NotifyOutboxQueue is drained by the external LINE/Facebook delivery service.
	NotifyOutboxQueue string
	PersistAuditQueue string
}

var WorkerKey = &WorkerKeyStruct{
	NotifyOutboxQueue: "notify_outbox_queue",
	PersistAuditQueue: "persist_audit_queue",
}
