package hls

// Fixture manifests used across this package's tests: a plain VOD media
// playlist, a live playlist with rolling MEDIA-SEQUENCE, AES-128 and
// Widevine encrypted variants, a discontinuity boundary, and a master
// playlist with alternate audio/subtitle groups.

const testMasterPlaylist = `#EXTM3U
#EXT-X-VERSION:6
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aud1",NAME="English",LANGUAGE="en",DEFAULT=YES,URI="audio/en/index.m3u8"
#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID="subs",NAME="English",LANGUAGE="en",URI="subs/en/index.m3u8"
#EXT-X-STREAM-INF:BANDWIDTH=1280000,CODECS="avc1.42e00a,mp4a.40.2",RESOLUTION=852x480,AUDIO="aud1",SUBTITLES="subs"
video/480p/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2560000,CODECS="avc1.42e00a,mp4a.40.2",RESOLUTION=1280x720,AUDIO="aud1",SUBTITLES="subs"
video/720p/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=5000000,CODECS="avc1.4d001f,mp4a.40.2",RESOLUTION=1920x1080,AUDIO="aud1",SUBTITLES="subs"
video/1080p/index.m3u8
`

const testMasterPlaylistNoAudioGroup = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-STREAM-INF:BANDWIDTH=800000,CODECS="avc1.42e00a,mp4a.40.2"
video/only/index.m3u8
`

const testMediaPlaylistVOD = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-PLAYLIST-TYPE:VOD
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:9.009,
segment0.ts
#EXTINF:9.009,
segment1.ts
#EXTINF:9.009,
segment2.ts
#EXT-X-ENDLIST
`

const testMediaPlaylistLive = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:100
#EXTINF:10.0,
segment100.ts
#EXTINF:10.0,
segment101.ts
#EXTINF:10.0,
segment102.ts
`

const testMediaPlaylistLiveAdvanced = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:101
#EXTINF:10.0,
segment101.ts
#EXTINF:10.0,
segment102.ts
#EXTINF:10.0,
segment103.ts
`

const testMediaPlaylistAES128 = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-KEY:METHOD=AES-128,URI="https://license.example.com/key",IV=0x00000000000000000000000000000001
#EXTINF:9.009,
segment0.ts
#EXTINF:9.009,
segment1.ts
#EXT-X-ENDLIST
`

const testMediaPlaylistWidevine = `#EXTM3U
#EXT-X-VERSION:6
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-KEY:METHOD=SAMPLE-AES-CTR,KEYFORMAT="urn:uuid:edef8ba9-79d6-4ace-a3c8-27dcd51d21ed",KEYID=0x0102030405060708090a0b0c0d0e0f10,URI="data:text/plain;base64,AAAANHBzc2gAAAAA7e+LqXnWSs6jyCfc1R0h7QAAABQIARIQAQIDBAUGBwgJCgsMDQ4PEEc="
#EXT-X-MAP:URI="init.mp4"
#EXTINF:6.0,
segment0.mp4
#EXTINF:6.0,
segment1.mp4
#EXT-X-ENDLIST
`

const testMediaPlaylistDiscontinuity = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-DISCONTINUITY-SEQUENCE:0
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,
segmentA0.ts
#EXTINF:10.0,
segmentA1.ts
#EXT-X-DISCONTINUITY
#EXTINF:10.0,
segmentB0.ts
#EXTINF:10.0,
segmentB1.ts
#EXT-X-ENDLIST
`

const testMediaPlaylistDiscontinuityAdvanced = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-DISCONTINUITY-SEQUENCE:1
#EXT-X-MEDIA-SEQUENCE:2
#EXTINF:10.0,
segmentB0.ts
#EXTINF:10.0,
segmentB1.ts
#EXT-X-ENDLIST
`

const testMediaPlaylistByteRange = `#EXTM3U
#EXT-X-VERSION:4
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,
#EXT-X-BYTERANGE:500000@0
segment.ts
#EXTINF:10.0,
#EXT-X-BYTERANGE:500000
segment.ts
#EXT-X-ENDLIST
`

const testMediaPlaylistUnsupportedDRM = `#EXTM3U
#EXT-X-VERSION:5
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-KEY:METHOD=SAMPLE-AES,KEYFORMAT="com.apple.streamingkeydelivery",URI="skd://key-id"
#EXTINF:6.0,
segment0.mp4
#EXT-X-ENDLIST
`

const testMalformedPlaylistNoHeader = `#EXT-X-VERSION:3
#EXTINF:10.0,
segment0.ts
`
