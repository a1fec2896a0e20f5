package proto

// Bit-selectors controlling which fields the server returns for FILE
// and ANIME commands. Per SPEC_FULL.md §12(c) / spec §9 open question
// (c), the full server-side mask catalogue is not restated here; this
// adopts a minimal documented set covering exactly the fields spec §3
// names on IdentResult/FileInfo.

// FMask selects FILE response fields. Bits run MSB-first across five
// bytes on the wire; only the bits this client actually consumes are
// named.
type FMask uint64

const (
	FMaskFileID      FMask = 1 << 31 // anidb's own file id, needed later for MYLISTDEL by fid
	FMaskSize        FMask = 1 << 30 // file size
	FMaskEd2k        FMask = 1 << 29 // ed2k hash
	FMaskAnimeID     FMask = 1 << 22 // anime id
	FMaskEpisodeID   FMask = 1 << 21 // episode id
	FMaskGroupID     FMask = 1 << 20 // group id
	FMaskEpisodeNum  FMask = 1 << 15 // episode number
	FMaskGroupName   FMask = 1 << 6  // group name
	FMaskGroupShort  FMask = 1 << 5  // group short name
	FMaskQuality     FMask = 1 << 12 // video quality/source
	FMaskCodec       FMask = 1 << 11 // video codec
)

// DefaultFMask is the documented default requested by the identification
// service, sufficient to populate FileInfo per spec §4.9.
const DefaultFMask = FMaskFileID | FMaskSize | FMaskEd2k | FMaskAnimeID | FMaskEpisodeID | FMaskGroupID |
	FMaskEpisodeNum | FMaskGroupName | FMaskGroupShort | FMaskQuality | FMaskCodec

// AMask selects ANIME response fields.
type AMask uint64

const (
	AMaskRomajiName  AMask = 1 << 31 // romaji main title
	AMaskKanjiName   AMask = 1 << 30 // kanji main title
	AMaskEnglishName AMask = 1 << 29 // english main title
	AMaskEpisodes    AMask = 1 << 25 // episode count
)

// DefaultAMask is the documented default requested for ANIME lookups:
// the title fields an IdentResult's titles column stores.
const DefaultAMask = AMaskRomajiName | AMaskKanjiName | AMaskEnglishName | AMaskEpisodes

// Hex renders a mask as the zero-padded hex string AniDB expects in
// the fmask/amask command parameters.
func (m FMask) Hex() string { return hex64(uint64(m), 10) }
func (m AMask) Hex() string { return hex64(uint64(m), 8) }

func hex64(v uint64, width int) string {
	const digits = "0123456789abcdef"
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf)
}
