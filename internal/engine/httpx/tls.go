package httpx

import "crypto/tls"

// tlsConfigInsecure disables certificate verification. Used only for
// the BSS client, per spec.md §6: "TLS verification disabled by design
// (internal cluster)." HSM/PCS/CFS default to verified TLS.
func tlsConfigInsecure() *tls.Config {
	return &tls.Config{InsecureSkipVerify: true} //nolint:gosec // spec.md §6: BSS runs inside the cluster perimeter.
}
