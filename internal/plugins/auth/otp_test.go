package auth

import (
	"strconv"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestOtpGenerator_GenerateRange(t *testing.T) {
	g := NewOtpGenerator()
	for i := 0; i < 200; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		n, err := strconv.Atoi(code)
		if err != nil || n < 1000 || n > 9999 || len(code) != 4 {
			t.Fatalf("code %q out of range", code)
		}
	}
}

func TestOtpGenerator_IsValid(t *testing.T) {
	clock := newTestClock()
	g := &OtpGenerator{now: clock.Now}
	otp := &Otp{ExpiresAt: clock.Now().Add(time.Minute)}

	if !g.IsValid(otp) {
		t.Error("fresh otp should be valid")
	}
	clock.Advance(time.Minute)
	if g.IsValid(otp) {
		t.Error("otp at its expiry instant should be invalid")
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("pikachu")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if ok, err := h.Matches("pikachu", hash); !ok || err != nil {
		t.Errorf("Matches(correct) = %v, %v", ok, err)
	}
	if ok, err := h.Matches("raichu", hash); ok || err != nil {
		t.Errorf("Matches(wrong) = %v, %v", ok, err)
	}
	if _, err := h.Matches("pikachu", "not-a-bcrypt-hash"); err == nil {
		t.Error("corrupt hash should error")
	}
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	if h := NewBcryptHasher(1); h.cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want default", h.cost)
	}
}
