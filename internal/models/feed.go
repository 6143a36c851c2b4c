package models

// Author is the poster of a feed entry
type Author struct {
	Name     string `json:"name" yaml:"name"`
	Username string `json:"username" yaml:"username"`
	Avatar   string `json:"avatar" yaml:"avatar"`
	Verified bool   `json:"verified,omitempty" yaml:"verified"`
}

// Post is a challenge as it appears in the social feed
type Post struct {
	ID           string `json:"id" yaml:"id"`
	Author       Author `json:"author" yaml:"author"`
	Title        string `json:"title" yaml:"title"`
	Description  string `json:"description" yaml:"description"`
	Location     string `json:"location" yaml:"location"`
	Category     string `json:"category" yaml:"category"`
	Image        string `json:"image" yaml:"image"`
	Video        bool   `json:"video,omitempty" yaml:"video"`
	Likes        int    `json:"likes" yaml:"likes"`
	Comments     int    `json:"comments" yaml:"comments"`
	Shares       int    `json:"shares" yaml:"shares"`
	Bookmarks    int    `json:"bookmarks" yaml:"bookmarks"`
	Participants int    `json:"participants" yaml:"participants"`
	Solutions    int    `json:"solutions" yaml:"solutions"`
	TimeAgo      string `json:"timeAgo" yaml:"time_ago"`
	Progress     *int   `json:"progress,omitempty" yaml:"progress"`
}

// PostView is a post with the viewer's interaction overlay applied
type PostView struct {
	Post
	Liked        bool `json:"liked"`
	Bookmarked   bool `json:"bookmarked"`
	Expanded     bool `json:"expanded"`
	DisplayLikes int  `json:"displayLikes"`
	DisplayMarks int  `json:"displayBookmarks"`
}
