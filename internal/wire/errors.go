package wire

import "odin-kv-server/internal/kverr"

func errDecode(cause error) error {
	return kverr.Decode(cause)
}
