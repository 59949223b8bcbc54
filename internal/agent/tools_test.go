package agent

import "testing"

func TestRequiresApproval(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{ToolCreateImage, true},
		{ToolEditImage, true},
		{ToolGenerateLogo, true},
		{ToolListGallery, false},
		{"rm_rf", true}, // 未知工具必须走审批
	}
	for _, tc := range cases {
		if got := RequiresApproval(tc.name); got != tc.want {
			t.Fatalf("RequiresApproval(%s) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSpecByName(t *testing.T) {
	spec, ok := SpecByName(ToolEditImage)
	if !ok || spec.Name != ToolEditImage {
		t.Fatalf("spec lookup failed: %+v ok=%v", spec, ok)
	}
	if _, ok := SpecByName("nope"); ok {
		t.Fatal("unexpected spec for unknown name")
	}
}
