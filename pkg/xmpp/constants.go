package xmpp

// Пространства имен сессий
const (
	NSPhone = "http://www.google.com/session/phone"
	NSVideo = "http://www.google.com/session/video"
)

// Описание голосовой сессии
var (
	QNPhoneDescription = QName{Space: NSPhone, Local: "description"}
	QNPhonePayloadType = QName{Space: NSPhone, Local: "payload-type"}
	QNPhoneSrcID       = QName{Space: NSPhone, Local: "src-id"}
)

// Описание видео сессии
var (
	QNVideoDescription = QName{Space: NSVideo, Local: "description"}
	QNVideoPayloadType = QName{Space: NSVideo, Local: "payload-type"}
	QNVideoSrcID       = QName{Space: NSVideo, Local: "src-id"}
)

// Атрибуты payload-type (без пространства имен)
var (
	QNPayloadTypeID        = QName{Local: "id"}
	QNPayloadTypeName      = QName{Local: "name"}
	QNPayloadTypeClockRate = QName{Local: "clockrate"}
	QNPayloadTypeBitRate   = QName{Local: "bitrate"}
	QNPayloadTypeChannels  = QName{Local: "channels"}
	QNPayloadTypeWidth     = QName{Local: "width"}
	QNPayloadTypeHeight    = QName{Local: "height"}
	QNPayloadTypeFramerate = QName{Local: "framerate"}
)

// Сигнальный конверт сессии
const NSSession = "http://www.google.com/session"

var (
	QNSession          = QName{Space: NSSession, Local: "session"}
	QNSessionType      = QName{Local: "type"}
	QNSessionID        = QName{Local: "id"}
	QNSessionInitiator = QName{Local: "initiator"}
	QNSessionFrom      = QName{Local: "from"}
	QNSessionTo        = QName{Local: "to"}
)
