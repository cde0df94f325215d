//go:build !ios && !android && (amd64 || arm64)

package avcodec

// CodecID is enum AVCodecID.
type CodecID int32

const (
	CodecIDNone CodecID = 0

	// Video codecs
	CodecIDMPEG1VIDEO CodecID = 1
	CodecIDMPEG2VIDEO CodecID = 2
	CodecIDH261       CodecID = 3
	CodecIDH263       CodecID = 4
	CodecIDRV10       CodecID = 5
	CodecIDRV20       CodecID = 6
	CodecIDMJPEG      CodecID = 7
	CodecIDMJPEGB     CodecID = 8
	CodecIDLJPEG      CodecID = 9
	CodecIDSP5X       CodecID = 10
	CodecIDJPEGLS     CodecID = 11
	CodecIDMPEG4      CodecID = 12
	CodecIDRAWVIDEO   CodecID = 13
	CodecIDMSMPEG4V1  CodecID = 14
	CodecIDMSMPEG4V2  CodecID = 15
	CodecIDMSMPEG4V3  CodecID = 16
	CodecIDWMV1       CodecID = 17
	CodecIDWMV2       CodecID = 18
	CodecIDH263P      CodecID = 19
	CodecIDH263I      CodecID = 20
	CodecIDFLV1       CodecID = 21
	CodecIDSVQ1       CodecID = 22
	CodecIDSVQ3       CodecID = 23
	CodecIDDVVIDEO    CodecID = 24
	CodecIDHUFFYUV    CodecID = 25
	CodecIDCYUV       CodecID = 26
	CodecIDH264       CodecID = 27
	CodecIDINDEO3     CodecID = 28
	CodecIDVP3        CodecID = 29
	CodecIDTHEORA     CodecID = 30
	CodecIDPNG        CodecID = 61
	CodecIDVP8        CodecID = 139
	CodecIDVP9        CodecID = 167
	CodecIDHEVC       CodecID = 173
	CodecIDAV1        CodecID = 226

	// Audio codecs start at 0x10000
	CodecIDPCMS16LE CodecID = 0x10000
	CodecIDPCMS16BE CodecID = 0x10001
	CodecIDPCMU16LE CodecID = 0x10002
	CodecIDPCMU16BE CodecID = 0x10003
	CodecIDPCMS8    CodecID = 0x10004
	CodecIDPCMU8    CodecID = 0x10005
	CodecIDPCMMULAW CodecID = 0x10006
	CodecIDPCMALAW  CodecID = 0x10007

	CodecIDMP2    CodecID = 0x15000
	CodecIDMP3    CodecID = 0x15001
	CodecIDAAC    CodecID = 0x15002
	CodecIDAC3    CodecID = 0x15003
	CodecIDDTS    CodecID = 0x15004
	CodecIDVORBIS CodecID = 0x15005
	CodecIDFLAC   CodecID = 0x1500C
	CodecIDALAC   CodecID = 0x15010
	CodecIDOPUS   CodecID = 0x1503C

	// Subtitle codecs start at 0x17000
	CodecIDDVDSubtitle CodecID = 0x17000
	CodecIDDVBSubtitle CodecID = 0x17001
	CodecIDText        CodecID = 0x17002

	// Pseudo codecs
	CodecIDTTF     CodecID = 0x18000
	CodecIDBinData CodecID = 0x18008
)

// String returns the name FFmpeg uses for the codec ID, e.g. "h264".
func (id CodecID) String() string {
	if name := GetName(id); name != "" {
		return name
	}
	if id == CodecIDNone {
		return "none"
	}
	return "unknown"
}

// IsVideo reports whether the ID lies in the video range.
func (id CodecID) IsVideo() bool {
	return id > 0 && id < 0x10000
}

// IsAudio reports whether the ID lies in the audio range.
func (id CodecID) IsAudio() bool {
	return id >= 0x10000 && id < 0x17000
}

// IsSubtitle reports whether the ID lies in the subtitle range.
func (id CodecID) IsSubtitle() bool {
	return id >= 0x17000 && id < 0x18000
}
