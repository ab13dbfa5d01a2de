package graph

import (
	"context"
	"fmt"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/rs/zerolog"
)

// Schema is the public GraphQL contract of the service.
const Schema = `
schema {
	query: Query
	mutation: Mutation
}

enum SortOrder {
	ASC
	DESC
}

type Course {
	id: ID!
	title: String!
	description: String!
	duration: String!
	outcome: String!
}

type Collection {
	id: ID!
	name: String!
	courses: [Course!]!
}

type User {
	id: ID!
	username: String!
	role: String!
}

input CourseInput {
	title: String!
	description: String!
	duration: String!
	outcome: String!
}

type Query {
	# Courses ordered by title. Descending unless sortOrder is ASC.
	courses(limit: Int, sortOrder: SortOrder): [Course!]!
	course(id: ID!): Course
	collections: [Collection!]!
	collection(id: ID!): Collection
}

type Mutation {
	addCourse(input: CourseInput!): Course
	updateCourse(id: ID!, input: CourseInput!): Course
	deleteCourse(id: ID!): Boolean
	# role defaults to USER.
	register(username: String!, password: String!, role: String): User
	login(username: String!, password: String!): String
}
`

// MaxQueryDepth bounds nested selections.
const MaxQueryDepth = 10

// NewSchema parses Schema against the root resolver.
func NewSchema(r *Resolver, logger zerolog.Logger) (*graphql.Schema, error) {
	s, err := graphql.ParseSchema(Schema, r,
		graphql.MaxDepth(MaxQueryDepth),
		graphql.Logger(panicLogger{logger: logger}),
	)
	if err != nil {
		return nil, fmt.Errorf("parse graphql schema: %w", err)
	}
	return s, nil
}

// panicLogger routes resolver panics to zerolog instead of the std logger.
type panicLogger struct {
	logger zerolog.Logger
}

func (l panicLogger) LogPanic(_ context.Context, value interface{}) {
	l.logger.Error().Interface("panic", value).Msg("graphql resolver panic")
}
