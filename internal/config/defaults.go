package config

// DefaultNewsSources is the production feed list.
func DefaultNewsSources() []NewsSource {
	return []NewsSource{
		{Name: "MusicTech", URL: "https://musictech.com/feed/", Category: "production"},
		{Name: "Rekkerd", URL: "http://feeds.feedburner.com/rekkerd", Category: "production"},
		{Name: "Sound On Sound - News", URL: "https://www.soundonsound.com/news/rss.xml", Category: "production"},
		{Name: "MusicRadar - Tech", URL: "https://www.musicradar.com/feeds/news/tech", Category: "production"},
		{Name: "Hypebot", URL: "https://feeds.feedburner.com/hypebot", Category: "promotion"},
		{Name: "DJ Mag - News & Events", URL: "https://djmag.com/rss.xml", Category: "events"},
	}
}

// DefaultArtists is the spotlight roster with Bandsintown artist ids.
func DefaultArtists() []Artist {
	return []Artist{
		{Name: "Cloonee", ID: "11087885"},
		{Name: "Marco Carola", ID: "97134"},
		{Name: "Manda Moor", ID: "15486359"},
		{Name: "Joseph Capriati", ID: "379225"},
		{Name: "Ilario Alicante", ID: "247339"},
	}
}

// DefaultManualEvents is the curated list imported by "harvest manual".
func DefaultManualEvents() []ManualEvent {
	return []ManualEvent{
		{Artist: "Cloonee", Date: "2025-11-02", Venue: "Space Miami", City: "Miami", Country: "USA", URL: "https://ra.co/events/1938143"},
		{Artist: "Marco Carola", Date: "2025-11-16", Venue: "Music On", City: "Ibiza", Country: "Spain", URL: "https://ra.co/events/1938011"},
		{Artist: "Manda Moor", Date: "2025-11-22", Venue: "Defected Malta", City: "Valletta", Country: "Malta", URL: "https://ra.co/events/1939001"},
		{Artist: "Joseph Capriati", Date: "2025-11-30", Venue: "Cocoricò", City: "Riccione", Country: "Italy", URL: "https://ra.co/events/1941101"},
		{Artist: "Ilario Alicante", Date: "2025-12-07", Venue: "Amnesia Milano", City: "Milan", Country: "Italy", URL: "https://ra.co/events/1942003"},
	}
}
