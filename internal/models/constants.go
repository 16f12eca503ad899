package models

const (
	// DefaultPaymentMethod используется, если клиент не указал способ оплаты
	DefaultPaymentMethod = "cash"

	// DateLayout формат даты слота в ответах API
	DateLayout = "2006-01-02"
)

const (
	HeaderUserID = "X-User-Id"

	CORSAllowMethods = "GET, POST, OPTIONS"
	CORSAllowHeaders = "Content-Type, X-User-Id"
	CORSMaxAge       = "86400"
)

const (
	MsgBookingCreated    = "Booking created successfully"
	MsgSlotTaken         = "Time slot already booked"
	MsgMethodNotAllowed  = "Method not allowed"
	MsgDatabaseMissing   = "Database configuration missing"
	MsgInternalError     = "Internal server error"
	MsgRateLimited       = "Rate limit exceeded"
	MsgSMSNotConfigured  = "SMS credentials not configured"
	MsgNotificationTitle = "Новая запись!"
)
