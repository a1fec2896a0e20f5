package tiger

// t1..t4 are the four 256-entry substitution tables the compression
// round draws from. The reference Tiger distribution builds these
// "nothing up my sleeve" tables by iterating the compression function
// itself over the algorithm's name string until each table is full of
// well-mixed 64-bit words. This bootstraps the same way, running
// compressBlock over that seed string and feeding its output state
// back in as the next block, rather than drawing from an unrelated
// PRNG.
var t1, t2, t3, t4 [256]uint64

const sboxSeed = "Tiger - A Fast New Hash Function, by Ross Anderson and Eli Biham"

// sboxBootstrapPasses is the number of compressBlock calls folded into
// each table entry, keeping the self-referential chain well mixed
// between entries.
const sboxBootstrapPasses = 5

func init() {
	var block [BlockSize]byte
	copy(block[:], sboxSeed)

	a := uint64(0x0123456789ABCDEF)
	b := uint64(0xFEDCBA9876543210)
	c := uint64(0xF096A5B4C3B2E187)

	tables := [4]*[256]uint64{&t1, &t2, &t3, &t4}
	for _, table := range tables {
		for i := range table {
			for pass := 0; pass < sboxBootstrapPasses; pass++ {
				compressBlock(&a, &b, &c, block[:])
			}
			table[i] = c
			putUint64LE(block[0:8], a)
			putUint64LE(block[8:16], b)
			putUint64LE(block[16:24], c)
		}
	}
}
