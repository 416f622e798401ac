package schema

// Example returns a small blog schema: users write posts, and both comments
// and likes point at a post and a user.
func Example() Schema {
	ref := func(table, field string) *Endpoint {
		return &Endpoint{Table: table, Field: field}
	}

	return Schema{
		Tables: []Table{
			{
				Name: "users",
				Note: "System users",
				Fields: []Field{
					{Name: "id", Type: "int", PK: true, NotNull: true, AutoIncrement: true},
					{Name: "username", Type: "varchar(50)", Unique: true, NotNull: true},
					{Name: "email", Type: "varchar(100)", NotNull: true},
					{Name: "created_at", Type: "timestamp", Default: "CURRENT_TIMESTAMP"},
				},
			},
			{
				Name: "posts",
				Note: "Posts written by users",
				Fields: []Field{
					{Name: "id", Type: "int", PK: true, AutoIncrement: true},
					{Name: "user_id", Type: "int", NotNull: true, References: ref("users", "id")},
					{Name: "title", Type: "varchar(200)", NotNull: true},
					{Name: "content", Type: "text"},
					{Name: "published_at", Type: "timestamp"},
				},
			},
			{
				Name: "comments",
				Note: "Comments on posts",
				Fields: []Field{
					{Name: "id", Type: "int", PK: true, AutoIncrement: true},
					{Name: "post_id", Type: "int", NotNull: true, References: ref("posts", "id")},
					{Name: "user_id", Type: "int", NotNull: true, References: ref("users", "id")},
					{Name: "content", Type: "text", NotNull: true},
					{Name: "created_at", Type: "timestamp", Default: "CURRENT_TIMESTAMP"},
				},
			},
			{
				Name: "likes",
				Note: "Likes on posts",
				Fields: []Field{
					{Name: "id", Type: "int", PK: true, AutoIncrement: true},
					{Name: "post_id", Type: "int", NotNull: true, References: ref("posts", "id")},
					{Name: "user_id", Type: "int", NotNull: true, References: ref("users", "id")},
					{Name: "created_at", Type: "timestamp", Default: "CURRENT_TIMESTAMP"},
				},
			},
		},
	}
}
