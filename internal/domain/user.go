package domain

// User is the host identity consumed by the curation core.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Sysadmin bool   `json:"sysadmin"`
}

// Container is an organization that owns datasets. The deposit container is
// the single fixed container holding all in-flight deposited datasets.
type Container struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Member ties a user to a container with a capacity.
type Member struct {
	ContainerID string   `json:"container_id"`
	UserID      string   `json:"user_id"`
	Capacity    Capacity `json:"capacity"`
}
