package gmail

import "testing"

func TestSenderName(t *testing.T) {
	cases := []struct {
		name string
		from string
		want string
	}{
		{"quoted display name", `"PT Sumber Rejeki" <order@sumber.co.id>`, "PT Sumber Rejeki"},
		{"bare display name", `CV Maju Jaya <sales@majujaya.id>`, "CV Maju Jaya"},
		{"address only", `order@sumber.co.id`, ""},
		{"empty", ``, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := senderName(tc.from); got != tc.want {
				t.Fatalf("senderName(%q) = %q, want %q", tc.from, got, tc.want)
			}
		})
	}
}
