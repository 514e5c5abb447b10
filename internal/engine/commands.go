package engine

// CommandCode mirrors the external command set (spec.md §6) without
// depending on any concrete transport package — the engine's Transport
// interface is the only contract a wire adapter has to satisfy.
type CommandCode uint16

const (
	CmdNotification            CommandCode = 0
	CmdRequestOfAuthentication CommandCode = 1
	CmdAuthentication          CommandCode = 2
	CmdSendHashStructure       CommandCode = 3
	CmdRequestHashStructure    CommandCode = 4
	CmdSendHashRoot            CommandCode = 5
	CmdRequestChunkFile        CommandCode = 6
	CmdSendChunkFile           CommandCode = 7
	CmdDeleteFile              CommandCode = 8
	CmdCreateDirectory         CommandCode = 9
	CmdDeleteDirectory         CommandCode = 10
	CmdStatusNotification      CommandCode = 11
)

// Notice is the u8 payload of a Notification command.
type Notice uint8

const (
	NoticeAuthentication Notice = iota
	NoticeLoginSuccessful
	NoticeLoginError
	NoticeSynchronized
	NoticeLoggedOut
	NoticeFullSpace
	NoticeFullSpaceOff
	NoticeOperationCompleted
)

// Status is the u8 payload of a StatusNotification command.
type Status uint8

const (
	StatusReady Status = iota
	StatusBusy
)
