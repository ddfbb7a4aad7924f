package platform

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   Classification
		wantOK bool
	}{
		{
			name:   "watch video",
			url:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want:   Classification{Platform: YouTube, ContentType: ContentVideo, ExtractedID: "dQw4w9WgXcQ"},
			wantOK: true,
		},
		{
			name:   "youtu.be short",
			url:    "https://youtu.be/dQw4w9WgXcQ",
			want:   Classification{Platform: YouTube, ContentType: ContentVideo, ExtractedID: "dQw4w9WgXcQ"},
			wantOK: true,
		},
		{
			name:   "youtu.be with share tracking",
			url:    "https://youtu.be/dQw4w9WgXcQ?si=AbCdEf",
			want:   Classification{Platform: YouTube, ContentType: ContentVideo, ExtractedID: "dQw4w9WgXcQ"},
			wantOK: true,
		},
		{
			name:   "youtube music",
			url:    "https://music.youtube.com/watch?v=dQw4w9WgXcQ",
			want:   Classification{Platform: YouTube, ContentType: ContentVideo, ExtractedID: "dQw4w9WgXcQ"},
			wantOK: true,
		},
		{
			name:   "video id wins over playlist",
			url:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLrAXtmRdnEQy6nuLMOV8V4gL7nq5D5x",
			want:   Classification{Platform: YouTube, ContentType: ContentVideo, ExtractedID: "dQw4w9WgXcQ"},
			wantOK: true,
		},
		{
			name:   "short video id falls back to playlist",
			url:    "https://www.youtube.com/watch?v=abc123&list=PLdef456",
			want:   Classification{Platform: YouTube, ContentType: ContentPlaylist, ExtractedID: "PLdef456"},
			wantOK: true,
		},
		{
			name:   "playlist",
			url:    "https://www.youtube.com/playlist?list=PLrAXtmRdnEQy6nuLMOV8V4gL7nq5D5x",
			want:   Classification{Platform: YouTube, ContentType: ContentPlaylist, ExtractedID: "PLrAXtmRdnEQy6nuLMOV8V4gL7nq5D5x"},
			wantOK: true,
		},
		{
			name:   "channel has no id",
			url:    "https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw",
			want:   Classification{Platform: YouTube, ContentType: ContentChannel},
			wantOK: true,
		},
		{
			name:   "malformed video id",
			url:    "https://www.youtube.com/watch?v=abc",
			want:   Classification{Platform: YouTube, ContentType: ContentVideo},
			wantOK: true,
		},
		{
			name:   "spotify track",
			url:    "https://open.spotify.com/track/4iV5W9uYEdYUVa79Axb7Rh",
			want:   Classification{Platform: Spotify, ContentType: ContentTrack, ExtractedID: "4iV5W9uYEdYUVa79Axb7Rh"},
			wantOK: true,
		},
		{
			name:   "spotify track with si query",
			url:    "https://open.spotify.com/track/0VjIjW4GlUZAMYd2vXMi3b?si=abc123",
			want:   Classification{Platform: Spotify, ContentType: ContentTrack, ExtractedID: "0VjIjW4GlUZAMYd2vXMi3b"},
			wantOK: true,
		},
		{
			name:   "spotify localized album",
			url:    "https://open.spotify.com/intl-de/album/1DFixLWuPkv3KT3TnV35m3",
			want:   Classification{Platform: Spotify, ContentType: ContentAlbum, ExtractedID: "1DFixLWuPkv3KT3TnV35m3"},
			wantOK: true,
		},
		{
			name:   "spotify playlist",
			url:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			want:   Classification{Platform: Spotify, ContentType: ContentPlaylist, ExtractedID: "37i9dQZF1DXcBWIGoYBM5M"},
			wantOK: true,
		},
		{
			name:   "spotify episode",
			url:    "https://open.spotify.com/episode/512ojhOuo1ktJprKbVcKyQ",
			want:   Classification{Platform: Spotify, ContentType: ContentEpisode, ExtractedID: "512ojhOuo1ktJprKbVcKyQ"},
			wantOK: true,
		},
		{
			name:   "spotify unknown path",
			url:    "https://open.spotify.com/wrong/abc",
			want:   Classification{Platform: Spotify},
			wantOK: true,
		},
		{
			name: "unrecognized domain",
			url:  "https://example.com/video",
		},
		{
			name: "lookalike domain",
			url:  "https://youtube.com.evil.example/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "non http scheme",
			url:  "ftp://youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "not a url",
			url:  "invalid-url",
		},
		{
			name: "empty",
			url:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("Classify(%q) ok = %v, want %v", tt.url, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.url, got, tt.want)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	const u = "https://youtu.be/dQw4w9WgXcQ"
	first, _ := Classify(u)
	for i := 0; i < 10; i++ {
		if got, _ := Classify(u); got != first {
			t.Fatalf("Classify() run %d = %+v, want %+v", i, got, first)
		}
	}
	if len(first.ExtractedID) != 11 {
		t.Errorf("extracted id length = %d, want 11", len(first.ExtractedID))
	}
}

func TestValidYouTubeID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"dQw4w9WgXcQ", true},
		{"a_b-c_d-e_f", true},
		{"dQw4w9WgXc", false},
		{"dQw4w9WgXcQQ", false},
		{"dQw4w9WgX!Q", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := ValidYouTubeID(tt.id); got != tt.want {
				t.Errorf("ValidYouTubeID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestParseAndLookup(t *testing.T) {
	p, ok := Parse("spotify")
	if !ok || p != Spotify {
		t.Fatalf("Parse(spotify) = %v, %v", p, ok)
	}
	if _, ok := Parse("SOUNDCLOUD"); ok {
		t.Error("Parse(SOUNDCLOUD) should fail")
	}

	spec, ok := Lookup(YouTube)
	if !ok {
		t.Fatal("Lookup(YouTube) failed")
	}
	if spec.DisplayName != "YouTube" || spec.PlaceholderTitle != "YouTube Video" {
		t.Errorf("unexpected YouTube spec: %+v", spec)
	}
	if got := spec.WatchURL("dQw4w9WgXcQ"); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("WatchURL() = %q", got)
	}
	if !spec.ValidID("dQw4w9WgXcQ") || spec.ValidID("PLdef456") {
		t.Error("YouTube ValidID grammar mismatch")
	}
}
