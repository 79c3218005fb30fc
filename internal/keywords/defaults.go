package keywords

// DefaultLists returns the built-in word lists.
func DefaultLists() Lists {
	return Lists{
		StopWords: []string{
			"a", "an", "the", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by", "from",
			"as", "is", "was", "are", "were", "been", "be", "have", "has", "had", "do", "does", "did",
			"will", "would", "could", "should", "may", "might", "must", "can", "need", "this", "that",
			"these", "those", "it", "its", "you", "your", "we", "our", "they", "their", "us", "who",
			"what", "which", "when", "where", "how", "all", "any", "each", "other", "some", "such",
			"not", "only", "than", "very", "just", "into", "about", "over", "within", "while",
			"work", "working", "job", "position", "role", "team", "teams", "company", "opportunity",
			"looking", "seeking", "required", "requirements", "preferred", "ability", "able",
			"experience", "years", "year", "including", "new", "strong", "excellent", "highly", "etc",
			"also", "via", "across", "ensure", "join", "plus", "bonus", "candidate", "candidates",
			"benefits", "salary", "apply", "responsibilities", "qualifications", "skills", "knowledge",
			"understanding", "familiarity", "using", "based", "environment", "help", "make", "great",
		},
		SoftSkills: []string{
			"collaboration", "communication", "teamwork", "leadership", "initiative", "proactive",
			"ownership", "responsibility", "commitment", "passion", "dedication", "motivation",
			"self-starter", "detail-oriented", "problem-solving", "critical thinking",
			"time management", "adaptability", "flexibility", "creativity", "innovation",
			"interpersonal", "organizational", "multitasking", "prioritization", "reliability",
			"accountability", "integrity", "professionalism", "work ethic", "positive attitude",
			"enthusiasm", "driven", "dynamic", "results-oriented", "goal-oriented", "mission",
			"continuous learning", "collaborative", "communicator", "passionate", "motivated",
		},
		Technical: []string{
			"python", "java", "javascript", "typescript", "ruby", "rails", "react", "node", "nodejs",
			"aws", "azure", "gcp", "kubernetes", "docker", "terraform", "ansible",
			"postgresql", "postgres", "mysql", "mongodb", "redis", "elasticsearch", "bigquery",
			"spark", "airflow", "kafka", "dbt", "snowflake", "databricks", "mlops", "devops",
			"ci/cd", "github", "gitlab", "jenkins", "circleci", "agile", "scrum", "jira", "confluence",
			"pytorch", "tensorflow", "scikit-learn", "pandas", "numpy", "sql", "nosql", "graphql",
			"rest", "api", "apis", "microservices", "serverless", "lambda", "ecs", "eks", "s3", "rds",
			"nlp", "llm", "genai", "ai", "ml", "etl", "tableau", "looker", "heroku", "vercel",
			"netlify", "linux", "unix", "bash", "git", "html", "css", "sass", "webpack", "vite",
			"nextjs", "vue", "angular", "swift", "kotlin", "flutter", "ios", "android",
			"frontend", "backend", "fullstack", "full-stack", "sre", "infrastructure", "networking",
			"security", "oauth", "jwt", "encryption", "compliance", "gdpr", "hipaa", "soc2", "pci",
			"prince2", "cbap", "pmp", ".net", "c#", "c++", "go", "golang", "scala", "rust",
			"grpc", "protobuf", "rabbitmq", "prometheus", "grafana", "opentelemetry", "helm",
		},
		Phrases: []string{
			"project management", "data science", "machine learning", "deep learning",
			"data engineering", "cloud platform", "google cloud platform", "google cloud",
			"agile/scrum", "a/b testing", "ci/cd", "real-time", "data pipelines", "data modeling",
			"ruby on rails", "node.js", "react.js", "vue.js", "next.js", "full stack",
			"natural language processing", "computer vision", "artificial intelligence",
			".net core", "software development", "react native", "power bi", "distributed systems",
		},
		ActionVerbs: []string{
			"Led", "Developed", "Built", "Created", "Managed", "Implemented", "Designed", "Architected",
			"Engineered", "Delivered", "Owned", "Integrated", "Automated", "Optimized", "Drove",
			"Spearheaded", "Established", "Pioneered", "Accelerated", "Transformed", "Streamlined",
			"Orchestrated", "Scaled", "Launched", "Migrated", "Improved", "Reduced",
		},
		Connectives: []string{
			"leveraging", "utilizing", "implementing", "applying", "with expertise in",
			"through", "incorporating", "employing", "using", "via",
		},
	}
}
