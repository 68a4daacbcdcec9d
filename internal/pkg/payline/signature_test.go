package payline

import "testing"

func TestBuildCheckoutSignatureBase_SortedCustomAndEncoded(t *testing.T) {
	base := BuildCheckoutSignatureBase(
		"merchant",
		"100.50",
		"42",
		"secret1",
		map[string]string{
			"pl_user": "user+1",
			"pl_pack": "p/42",
		},
	)

	expected := "merchant:100.50:42:secret1:pl_pack=p%2F42:pl_user=user%2B1"
	if base != expected {
		t.Fatalf("unexpected base string:\nwant %s\ngot  %s", expected, base)
	}
}

func TestBuildResultSignatureBase_IgnoresNonCustomKeys(t *testing.T) {
	base := BuildResultSignatureBase("10.00", "7", "secret2", map[string]string{
		"pl_pack": "starter",
		"other":   "dropped",
	})

	expected := "10.00:7:secret2:pl_pack=starter"
	if base != expected {
		t.Fatalf("unexpected base string:\nwant %s\ngot  %s", expected, base)
	}
}

func TestVerifySignature_CaseInsensitive(t *testing.T) {
	if !VerifySignature("aBcD", "ABcd") {
		t.Fatal("expected case-insensitive constant-time comparison")
	}
}

func TestSign_SHA256(t *testing.T) {
	if got := Sign("abc"); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("unexpected hash: %s", got)
	}
}

func TestVerifyResultSignature_RoundTrip(t *testing.T) {
	custom := map[string]string{"pl_pack": "starter"}
	sig := Sign(BuildResultSignatureBase("10.00", "order-1", "secret2", custom))

	if !VerifyResultSignature("10.00", "order-1", sig, "secret2", custom) {
		t.Fatal("expected signature to verify")
	}
	if VerifyResultSignature("10.01", "order-1", sig, "secret2", custom) {
		t.Fatal("expected amount mismatch to fail verification")
	}
	if VerifyResultSignature("10.00", "order-1", sig, "", custom) {
		t.Fatal("expected empty secret to fail verification")
	}
}
