package questions

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/quizgen/errors"
)

// StaticName is the provider name of the static tier.
const StaticName = "static"

type entry struct {
	text    string
	choices []string
	correct int
}

type bankKey struct{ topic, difficulty string }

var bankEntries = map[bankKey][]entry{
	{ComputerScience, Easy}: {
		{"What is the primary function of a Central Processing Unit (CPU)?",
			[]string{"Store long-term data", "Execute program instructions", "Display graphics", "Connect to the internet"}, 1},
		{"Which of the following is a common input device for a computer?",
			[]string{"Monitor", "Printer", "Keyboard", "Speakers"}, 2},
		{"What does RAM stand for in computing?",
			[]string{"Read Access Memory", "Random Access Memory", "Remote Access Module", "Run Application Management"}, 1},
		{"Which component is responsible for storing data permanently in a computer?",
			[]string{"CPU", "RAM", "Hard Drive", "Graphics Card"}, 2},
		{"What is a network protocol?",
			[]string{"A type of network cable", "A set of rules for data communication", "A physical network device", "Software for browsing the internet"}, 1},
	},
	{ComputerScience, Medium}: {
		{"Which data structure uses LIFO (Last In, First Out) principle?",
			[]string{"Queue", "Stack", "Linked List", "Tree"}, 1},
		{"What is the time complexity of searching an element in a sorted array using binary search?",
			[]string{"O(n)", "O(log n)", "O(n log n)", "O(1)"}, 1},
		{"In object-oriented programming, what is polymorphism?",
			[]string{"The ability of an object to take on many forms", "Hiding the implementation details of an object", "Bundling data and methods that operate on the data", "Creating new classes from existing classes"}, 0},
		{"Which of the following is a common use case for a hash map (or dictionary)?",
			[]string{"Storing elements in a sorted order", "Implementing a FIFO queue", "Fast lookups by key", "Representing hierarchical data"}, 2},
		{"What is the primary purpose of a 'finally' block in a try-catch-finally statement in Java?",
			[]string{"To execute code only if an exception occurs", "To execute code only if no exception occurs", "To execute code regardless of whether an exception occurred", "To define a new exception type"}, 2},
	},
	{ComputerScience, Hard}: {
		{"What is the CAP theorem in distributed systems?",
			[]string{"Consistency, Availability, Partition tolerance; you can achieve all three simultaneously", "Consistency, Atomicity, Partition tolerance; you can achieve any two", "Consistency, Availability, Partition tolerance; you can only achieve two out of three", "Concurrency, Availability, Performance; you can achieve all three"}, 2},
		{`Which of the following best describes a "deadlock" in an operating system?`,
			[]string{"A situation where a process is unable to acquire a resource", "A situation where two or more processes are blocked indefinitely, waiting for each other to release resources", "A process that has terminated unexpectedly", "A condition where a process repeatedly requests a resource that is immediately granted"}, 1},
		{`In the context of databases, what is "ACID" a mnemonic for?`,
			[]string{"Atomicity, Consistency, Isolation, Durability", "Availability, Consistency, Integrity, Durability", "Atomicity, Concurrency, Isolation, Distribution", "Access, Control, Integrity, Data"}, 0},
		{"What is the primary advantage of using a microservices architecture over a monolithic architecture?",
			[]string{"Simpler deployment and testing", "Reduced operational overhead", "Increased coupling between components", "Independent deployability and scalability of services"}, 3},
		{"Which sorting algorithm has the worst-case time complexity of O(n^2) but a best-case and average-case time complexity of O(n log n)?",
			[]string{"Bubble Sort", "Insertion Sort", "Quick Sort", "Merge Sort"}, 2},
	},
	{ArtificialIntelligence, Easy}: {
		{`Which field of AI focuses on enabling computers to "see" and interpret visual information?`,
			[]string{"Natural Language Processing", "Robotics", "Computer Vision", "Expert Systems"}, 2},
		{"What is a common term for an AI program designed to simulate human conversation?",
			[]string{"Neural Network", "Chatbot", "Algorithm", "Data Miner"}, 1},
		{"Which type of learning in AI involves training a model on labeled data?",
			[]string{"Unsupervised Learning", "Reinforcement Learning", "Supervised Learning", "Deep Learning"}, 2},
		{"What is the goal of an AI system that plays games like chess or Go?",
			[]string{"To understand human emotions", "To mimic human creativity", "To achieve optimal performance in a defined environment", "To generate random moves"}, 2},
		{`What does "AI" stand for?`,
			[]string{"Automated Intelligence", "Artificial Information", "Advanced Integration", "Artificial Intelligence"}, 3},
	},
	{ArtificialIntelligence, Medium}: {
		{"Which AI concept involves a machine learning from its own actions and experiences through trial and error, often in a simulated environment?",
			[]string{"Supervised Learning", "Unsupervised Learning", "Reinforcement Learning", "Transfer Learning"}, 2},
		{`What is the primary purpose of a "training set" in machine learning?`,
			[]string{"To test the model's performance", "To provide data for the model to learn patterns and relationships", "To validate the model's accuracy", "To fine-tune hyperparameters"}, 1},
		{"Which algorithm is commonly used for classification tasks and works by finding a hyperplane that best separates different classes in a dataset?",
			[]string{"K-Means Clustering", "Linear Regression", "Support Vector Machine (SVM)", "Decision Tree"}, 2},
		{`What is "Natural Language Processing" (NLP)?`,
			[]string{"The study of natural ecosystems", "A branch of AI that enables computers to understand, interpret, and generate human language", "A method for processing natural images", "The development of natural user interfaces"}, 1},
		{`In the context of neural networks, what is a "hidden layer"?`,
			[]string{"The input layer of the network", "The output layer of the network", "A layer of neurons between the input and output layers that performs computations", "A layer that is not visible to the programmer"}, 2},
	},
	{ArtificialIntelligence, Hard}: {
		{`What is the "vanishing gradient problem" in training deep neural networks?`,
			[]string{"Gradients become too large, leading to unstable training", "Gradients become too small, making it difficult for the network to learn from earlier layers", "The network's accuracy decreases rapidly", "The network overfits the training data"}, 1},
		{"Which AI paradigm focuses on creating intelligent agents that perceive their environment and take actions to maximize their chances of achieving their goals?",
			[]string{"Symbolic AI", "Connectionism", "Agent-Based AI", "Evolutionary Computation"}, 2},
		{`What is the primary challenge addressed by "Generative Adversarial Networks" (GANs)?`,
			[]string{"Improving the accuracy of classification models", "Generating realistic new data instances that resemble the training data", "Reducing the computational cost of deep learning", "Preventing overfitting in neural networks"}, 1},
		{`Explain the concept of "Transfer Learning" in machine learning.`,
			[]string{"Training a model from scratch on a new dataset", "Applying knowledge gained from solving one problem to a different but related problem", "Transferring data between different machine learning models", "Learning multiple tasks simultaneously with a single model"}, 1},
		{`What is the "Turing Test" designed to assess?`,
			[]string{"A computer's ability to solve complex mathematical problems", "A machine's ability to exhibit intelligent behavior equivalent to, or indistinguishable from, that of a human", "The speed of a computer's processing unit", "The efficiency of an AI algorithm"}, 1},
	},
	{Philosophy, Easy}: {
		{`Which ancient Greek philosopher is famous for his method of questioning to stimulate critical thinking, often summarized as "the Socratic method"?`,
			[]string{"Plato", "Aristotle", "Socrates", "Pythagoras"}, 2},
		{"What branch of philosophy deals with the nature of knowledge, justification, and belief?",
			[]string{"Metaphysics", "Ethics", "Epistemology", "Aesthetics"}, 2},
		{"Which philosophical concept suggests that pleasure is the highest good and proper aim of human life?",
			[]string{"Stoicism", "Hedonism", "Nihilism", "Existentialism"}, 1},
		{`What is the "Golden Rule" in ethics?`,
			[]string{"Always seek personal gain", "Treat others as you would like to be treated", "The strongest survive", "Follow the laws of the land"}, 1},
		{`Which philosopher is known for the famous phrase, "I think, therefore I am"?`,
			[]string{"John Locke", "David Hume", "René Descartes", "Immanuel Kant"}, 2},
	},
	{Philosophy, Medium}: {
		{"Which philosophical school of thought emphasizes living in harmony with nature and reason, often advocating for emotional resilience and self-control?",
			[]string{"Epicureanism", "Stoicism", "Rationalism", "Empiricism"}, 1},
		{`What is the "Allegory of the Cave" and which philosopher proposed it?`,
			[]string{"A story about a hidden treasure, by Aristotle", "A metaphor for the effect of education on the human soul, by Plato", "A tale of a journey through a dark forest, by Socrates", "A description of early human civilization, by Rousseau"}, 1},
		{"Which ethical framework judges the morality of an action based on its outcome or consequences?",
			[]string{"Deontology", "Virtue Ethics", "Consequentialism", "Existentialism"}, 2},
		{`What is the "Categorical Imperative" and which philosopher is associated with it?`,
			[]string{"A command to act only out of self-interest, by Machiavelli", "A moral law that is unconditional or absolute for all agents, by Immanuel Kant", "A rule for achieving happiness, by Epicurus", "A principle of utility, by Jeremy Bentham"}, 1},
		{"Which philosophical problem explores whether we can truly know the external world, or if our knowledge is limited to our perceptions and ideas?",
			[]string{"The Problem of Evil", "The Mind-Body Problem", "The Problem of Induction", "The Problem of External World Skepticism"}, 3},
	},
	{Philosophy, Hard}: {
		{`Explain the concept of "Tabula Rasa" and its significance in the philosophy of mind.`,
			[]string{"The idea that the mind is born with innate knowledge", `The theory that the mind is a "blank slate" at birth, with all knowledge derived from experience`, "A form of logical fallacy", "A state of mental confusion"}, 1},
		{`Which philosopher is known for his critique of metaphysics and his emphasis on the "will to power" as a fundamental driving force in human existence?`,
			[]string{"Arthur Schopenhauer", "Søren Kierkegaard", "Friedrich Nietzsche", "Jean-Paul Sartre"}, 2},
		{`What is the "Ship of Theseus" paradox, and what philosophical concept does it explore?`,
			[]string{"A paradox about time travel, exploring causality", "A thought experiment about identity, asking if an object remains the same after all its components are replaced", "A logical puzzle about infinite regress, exploring epistemology", "A moral dilemma about sacrifice, exploring ethics"}, 1},
		{`In existentialism, what does "existence precedes essence" mean?`,
			[]string{"Our predetermined nature defines who we are", "We are born with a fixed purpose", "We first exist, then define ourselves through our choices and actions", "Essence is more important than existence"}, 2},
		{"Which philosophical argument attempts to prove the existence of God by appealing to the necessity of a first cause or an uncaused cause?",
			[]string{"The Ontological Argument", "The Teleological Argument", "The Cosmological Argument", "The Moral Argument"}, 2},
	},
}

// staticID formats ids like CO_EASY_001: two letters of topic, four of
// difficulty and the one-based position in the bank.
func staticID(topic, difficulty string, n int) string {
	prefix := strings.ToUpper(topic[:min(len(topic), 2)])
	diff := strings.ToUpper(difficulty[:min(len(difficulty), 4)])
	return fmt.Sprintf("%s_%s_%03d", prefix, diff, n)
}

// Bank returns the static questions for a topic and difficulty, nil when the
// bank has none. The returned slice is a fresh copy.
func Bank(topic, difficulty string) []Question {
	entries := bankEntries[bankKey{topic, difficulty}]
	if len(entries) == 0 {
		return nil
	}
	out := make([]Question, len(entries))
	for i, e := range entries {
		out[i] = Question{
			ID:           staticID(topic, difficulty, i+1),
			Text:         e.text,
			Choices:      append([]string(nil), e.choices...),
			CorrectIndex: e.correct,
			Topic:        topic,
			Difficulty:   difficulty,
		}
	}
	return out
}

// BankTopics lists the topics the static bank covers.
func BankTopics() []string {
	return []string{ComputerScience, ArtificialIntelligence, Philosophy}
}

// StaticSource serves the compiled-in bank. It is the last tier and only
// fails for topics the bank does not cover.
type StaticSource struct{}

// NewStaticSource returns the static tier.
func NewStaticSource() *StaticSource { return &StaticSource{} }

// Name returns "static".
func (s *StaticSource) Name() string { return StaticName }

// IsAvailable is always true.
func (s *StaticSource) IsAvailable(context.Context) bool { return true }

// Execute returns up to q.Count bank questions. It ignores ctx so the chain
// can still fall back to it after the outer timeout has fired.
func (s *StaticSource) Execute(_ context.Context, q Query) ([]Question, error) {
	qs := Bank(q.Topic, q.Difficulty)
	if len(qs) == 0 {
		return nil, errors.InvalidRequest(StaticName,
			fmt.Sprintf("no static questions for %s at %s difficulty", q.Topic, q.Difficulty))
	}
	return pick(qs, q.Count), nil
}
