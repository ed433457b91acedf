package dev

import "testing"

func TestInject(t *testing.T) {
	const snippet = "<script>x</script>"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "head",
			in:   "<html><head></head><body></body></html>",
			want: "<html><head><script>x</script></head><body></body></html>",
		},
		{
			name: "head preferred over earlier body",
			in:   "<body></body><head></head>",
			want: "<body></body><head><script>x</script></head>",
		},
		{
			name: "body",
			in:   "<html><body><p>hi</p></body></html>",
			want: "<html><body><p>hi</p><script>x</script></body></html>",
		},
		{
			name: "html",
			in:   "<html><p>hi</p></html>",
			want: "<html><p>hi</p><script>x</script></html>",
		},
		{
			name: "first occurrence",
			in:   "<head></head><head></head>",
			want: "<head><script>x</script></head><head></head>",
		},
		{
			name: "case sensitive",
			in:   "<HTML><HEAD></HEAD></HTML>",
			want: "<HTML><HEAD></HEAD></HTML>",
		},
		{
			name: "no tags",
			in:   "just text",
			want: "just text",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Inject([]byte(tt.in), snippet))
			if got != tt.want {
				t.Errorf("Inject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInject_DoesNotModifyInput(t *testing.T) {
	in := []byte("<head></head>")
	Inject(in, "<script></script>")
	if string(in) != "<head></head>" {
		t.Errorf("input modified: %q", in)
	}
}
